// Package agent implements the query-routing decision engine: classify each
// query, route it to the direct, retrieval-augmented or clarification path,
// and keep the conversation in session memory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"policybot/internal/llmclient"
	"policybot/internal/memory"
	"policybot/internal/models"
	"policybot/internal/prompts"
	"policybot/internal/retriever"
	"policybot/internal/tools"
)

const maxQueryLength = 1000

// classification settings: low temperature and a short budget keep the
// label deterministic-leaning and cheap.
const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 50
)

// PassageRetriever is the slice of the retriever the agent needs.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error)
}

// Agent owns a single query's lifecycle. It holds a handle to session
// memory rather than reaching into any global state.
type Agent struct {
	llm       llmclient.Client
	retriever PassageRetriever
	memory    *memory.SessionMemory
	tools     *tools.Registry
}

func New(llm llmclient.Client, retr PassageRetriever, mem *memory.SessionMemory, registry *tools.Registry) *Agent {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Agent{llm: llm, retriever: retr, memory: mem, tools: registry}
}

// Ask processes one query and returns the grounded response. A missing or
// expired session ID starts a fresh session. The conversation turns are
// appended only after the complete answer exists, never incrementally.
func (a *Agent) Ask(ctx context.Context, query, sessionID string) (models.AgentResponse, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return models.AgentResponse{}, fmt.Errorf("query must not be empty")
	}
	if len(query) > maxQueryLength {
		return models.AgentResponse{}, fmt.Errorf("query exceeds %d characters", maxQueryLength)
	}

	a.memory.ExpireStale()
	if sessionID == "" || !a.memory.Exists(sessionID) {
		sessionID = a.memory.CreateSession()
	}
	history := a.memory.History(sessionID)

	queryType := a.Classify(ctx, query, history)
	log.Info().Str("session_id", sessionID).Str("query_type", string(queryType)).Msg("query classified")

	var (
		answer  string
		sources []string
		method  models.Method
		err     error
	)
	switch queryType {
	case models.QueryGeneral:
		method = models.MethodDirect
		answer, err = a.directAnswer(ctx, query, history)
		if err != nil {
			return models.AgentResponse{}, fmt.Errorf("generating direct answer: %w", err)
		}
	case models.QueryClarification:
		// Skip generation entirely; ambiguous input gets a templated reply.
		method = models.MethodDirect
		answer = prompts.ClarificationAnswer
	default:
		method = models.MethodRAG
		answer, sources, err = a.ragAnswer(ctx, query, history)
		if err != nil {
			return models.AgentResponse{}, err
		}
	}

	now := time.Now()
	a.memory.AppendTurn(sessionID, models.ConversationTurn{Role: models.RoleUser, Text: query, Timestamp: now})
	a.memory.AppendTurn(sessionID, models.ConversationTurn{Role: models.RoleAgent, Text: answer, Timestamp: now})

	return models.AgentResponse{
		Answer:         answer,
		Sources:        sources,
		SessionID:      sessionID,
		QueryType:      queryType,
		Method:         method,
		ProcessingTime: time.Since(start),
	}, nil
}

// Classify asks the LLM to label the query. Any failure, including
// unparseable output, falls back to POLICY: retrieval-augmented answers are
// source-backed even when the intent is uncertain, so it is the safer
// default. The fallback is logged, never raised.
func (a *Agent) Classify(ctx context.Context, query string, history []models.ConversationTurn) models.QueryType {
	out, err := a.llm.Generate(ctx, prompts.IntentPrompt(query, history),
		llmclient.WithTemperature(classifyTemperature),
		llmclient.WithMaxTokens(classifyMaxTokens),
		llmclient.WithSingleAttempt(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("classification failed, defaulting to POLICY")
		return models.QueryPolicy
	}

	label := strings.ToUpper(out)
	switch {
	case strings.Contains(label, string(models.QueryGeneral)):
		return models.QueryGeneral
	case strings.Contains(label, string(models.QueryPolicy)):
		return models.QueryPolicy
	case strings.Contains(label, string(models.QueryClarification)):
		return models.QueryClarification
	}
	log.Warn().Str("classification", out).Msg("unknown classification, defaulting to POLICY")
	return models.QueryPolicy
}

func (a *Agent) directAnswer(ctx context.Context, query string, history []models.ConversationTurn) (string, error) {
	msgs := make([]llmclient.Message, 0, len(history)+1)
	for _, t := range history {
		role := llmclient.RoleUser
		if t.Role == models.RoleAgent {
			role = llmclient.RoleAssistant
		}
		msgs = append(msgs, llmclient.Message{Role: role, Content: t.Text})
	}
	msgs = append(msgs, llmclient.Message{Role: llmclient.RoleUser, Content: query})

	return a.llm.GenerateWithHistory(ctx, msgs, llmclient.WithSystemPrompt(prompts.SystemAgent))
}

func (a *Agent) ragAnswer(ctx context.Context, query string, history []models.ConversationTurn) (string, []string, error) {
	passages, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("retrieving passages: %w", err)
	}
	if len(passages) == 0 {
		// Absence of sources is surfaced, not masked with a made-up answer.
		log.Warn().Str("query", query).Msg("no relevant passages found")
		return prompts.NoInformationAnswer, nil, nil
	}

	answer, err := a.llm.Generate(ctx, prompts.RAGPrompt(query, passages),
		llmclient.WithSystemPrompt(prompts.SystemRAG))
	if err != nil {
		return "", nil, fmt.Errorf("generating grounded answer: %w", err)
	}
	return answer, retriever.Sources(passages), nil
}

// ExecuteTool runs a tool the model requested mid-pipeline. A missing tool
// fails only that invocation; the agent degrades to answering without the
// tool's result. The second return reports whether a result is available.
func (a *Agent) ExecuteTool(ctx context.Context, name string, args map[string]any) (any, bool) {
	result, err := a.tools.Execute(ctx, name, args)
	if err != nil {
		var notFound *models.ToolNotFoundError
		if errors.As(err, &notFound) {
			log.Warn().Str("tool", name).Msg("tool not registered, continuing without it")
		} else {
			log.Error().Err(err).Str("tool", name).Msg("tool execution failed")
		}
		return nil, false
	}
	return result, true
}
