// Package prompts centralizes the prompt templates and canned answers used
// by the agent.
package prompts

import (
	"fmt"
	"strings"

	"policybot/internal/models"
)

const SystemAgent = `You are an intelligent AI assistant helping employees with company policy questions.

Your capabilities:
1. Answer general questions directly using your knowledge
2. Search company policy documents when questions are about specific policies
3. Provide accurate, helpful, and concise responses

Guidelines:
- Be professional and friendly
- Cite sources when using document information
- If you don't know something, say so honestly
- Ask clarifying questions when needed`

const SystemRAG = `You are an AI assistant answering questions based on company policy documents.

CRITICAL INSTRUCTIONS:
1. Answer ONLY based on the provided context
2. If the context doesn't contain the answer, say "I don't have information about that in the available documents"
3. Always cite the source document(s) used
4. Be specific and accurate
5. Don't make up information`

const intentTemplate = `Analyze the user's query and determine the best approach to answer it.

%sUser Query: %s

Classify the query into ONE of these categories:

1. GENERAL: General knowledge questions that can be answered directly
   Examples: "What is AI?", "How to be productive?", "What's the capital of France?"

2. POLICY: Questions about company policies, procedures, or benefits that require document search
   Examples: "What is the leave policy?", "How do I request PTO?", "What are the benefits?"

3. CLARIFICATION: Query is unclear or ambiguous and needs clarification
   Examples: "What about that?", "Tell me more", "And?"

Respond with ONLY the category name: GENERAL, POLICY, or CLARIFICATION`

const ragTemplate = `You are answering a question based on company policy documents.

CONTEXT DOCUMENTS:
%s

USER QUESTION: %s

INSTRUCTIONS:
1. Answer the question using ONLY the information from the context above
2. Be specific and cite which document(s) you used
3. If the context doesn't contain enough information, say so
4. Format your response clearly

Answer:`

// Canned answers: these paths never call the LLM for synthesis.
const (
	ClarificationAnswer = "I'm not quite sure what you're asking. Could you please provide more details or rephrase your question?"

	NoInformationAnswer = "I don't have information about that in the available company policy documents. Could you rephrase your question or ask about something else?"
)

const maxContextLength = 3000

// IntentPrompt builds the classification prompt, giving the classifier the
// recent conversation as context.
func IntentPrompt(query string, history []models.ConversationTurn) string {
	var ctx string
	if h := FormatHistory(history, 5); h != "" {
		ctx = "Previous conversation:\n" + h + "\n\n"
	}
	return fmt.Sprintf(intentTemplate, ctx, query)
}

// RAGPrompt builds the grounded-answer prompt from retrieved passages.
func RAGPrompt(query string, passages []models.RetrievedPassage) string {
	return fmt.Sprintf(ragTemplate, FormatContext(passages), query)
}

// FormatContext renders passages as numbered, source-attributed context
// blocks, truncated to a bounded length.
func FormatContext(passages []models.RetrievedPassage) string {
	var parts []string
	for i, p := range passages {
		pageInfo := ""
		if p.Page > 0 {
			pageInfo = fmt.Sprintf(" (Page %d)", p.Page)
		}
		parts = append(parts, fmt.Sprintf("[Document %d: %s%s]\n%s\n", i+1, p.SourceDocument, pageInfo, p.Text))
	}
	context := strings.Join(parts, "\n")
	if len(context) > maxContextLength {
		context = context[:maxContextLength] + "\n...[Context truncated]"
	}
	return context
}

// FormatHistory renders the last maxTurns turns as "User:"/"Assistant:"
// lines. Empty history yields an empty string.
func FormatHistory(turns []models.ConversationTurn, maxTurns int) string {
	if len(turns) == 0 {
		return ""
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	var lines []string
	for _, t := range turns {
		prefix := "User:"
		if t.Role == models.RoleAgent {
			prefix = "Assistant:"
		}
		lines = append(lines, prefix+" "+t.Text)
	}
	return strings.Join(lines, "\n")
}
