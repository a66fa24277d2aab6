package models

import "time"

// QueryType is the classification assigned to an incoming query.
type QueryType string

const (
	QueryGeneral       QueryType = "GENERAL"
	QueryPolicy        QueryType = "POLICY"
	QueryClarification QueryType = "CLARIFICATION"
)

// Method describes how an answer was produced.
type Method string

const (
	MethodDirect Method = "direct"
	MethodRAG    Method = "rag"
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// DocumentChunk is one indexable piece of a source document.
// Chunks are immutable once created by the processor.
type DocumentChunk struct {
	ID             string
	SourceDocument string
	SequenceIndex  int
	Text           string
	TokenCount     int
	Embedding      []float32
	Page           int    // 0 when the source has no pages
	Section        string // optional, e.g. spreadsheet sheet name
}

// RetrievedPassage is a ranked search hit handed to the generation step.
type RetrievedPassage struct {
	ChunkID         string
	Text            string
	SourceDocument  string
	Page            int
	SimilarityScore float32
}

// ConversationTurn is a single message within a session.
type ConversationTurn struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// AgentResponse is the result of one ask() call.
type AgentResponse struct {
	Answer         string
	Sources        []string
	SessionID      string
	QueryType      QueryType
	Method         Method
	ProcessingTime time.Duration
}
