package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policybot/internal/llmclient"
	"policybot/internal/memory"
	"policybot/internal/models"
	"policybot/internal/prompts"
	"policybot/internal/tools"
)

// fakeLLM answers classification prompts with classifyReply and everything
// else with answerReply. It records every prompt it sees.
type fakeLLM struct {
	classifyReply string
	classifyErr   error
	answerReply   string
	answerErr     error

	classifyCalls int
	generateCalls int
	prompts       []string
}

func isClassifyPrompt(p string) bool {
	return strings.Contains(p, "Classify the query")
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llmclient.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if isClassifyPrompt(prompt) {
		f.classifyCalls++
		return f.classifyReply, f.classifyErr
	}
	f.generateCalls++
	return f.answerReply, f.answerErr
}

func (f *fakeLLM) GenerateWithHistory(ctx context.Context, messages []llmclient.Message, opts ...llmclient.Option) (string, error) {
	f.generateCalls++
	return f.answerReply, f.answerErr
}

type fakeRetriever struct {
	passages []models.RetrievedPassage
	err      error
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error) {
	f.calls++
	return f.passages, f.err
}

func newTestAgent(llm *fakeLLM, retr *fakeRetriever) *Agent {
	mem := memory.New(time.Hour, time.Hour, 10)
	return New(llm, retr, mem, tools.NewRegistry())
}

func policyPassages() []models.RetrievedPassage {
	return []models.RetrievedPassage{
		{ChunkID: "handbook.pdf#3", Text: "Employees accrue 20 vacation days per year.", SourceDocument: "handbook.pdf", Page: 4, SimilarityScore: 0.91},
	}
}

func TestAskGeneralAnswersDirectly(t *testing.T) {
	llm := &fakeLLM{classifyReply: "GENERAL", answerReply: "AI is the simulation of human intelligence."}
	retr := &fakeRetriever{}
	a := newTestAgent(llm, retr)

	resp, err := a.Ask(context.Background(), "What is AI?", "")
	require.NoError(t, err)

	assert.Equal(t, models.QueryGeneral, resp.QueryType)
	assert.Equal(t, models.MethodDirect, resp.Method)
	assert.Equal(t, "AI is the simulation of human intelligence.", resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, retr.calls)
	assert.NotEmpty(t, resp.SessionID)
}

func TestAskPolicyRetrievesAndCitesSources(t *testing.T) {
	llm := &fakeLLM{classifyReply: "POLICY", answerReply: "You accrue 20 vacation days per year (handbook.pdf)."}
	retr := &fakeRetriever{passages: policyPassages()}
	a := newTestAgent(llm, retr)

	resp, err := a.Ask(context.Background(), "What is the vacation policy?", "")
	require.NoError(t, err)

	assert.Equal(t, models.QueryPolicy, resp.QueryType)
	assert.Equal(t, models.MethodRAG, resp.Method)
	assert.Equal(t, 1, retr.calls)
	assert.Equal(t, []string{"handbook.pdf (Page 4)"}, resp.Sources)
}

func TestAskPolicyNoPassages(t *testing.T) {
	llm := &fakeLLM{classifyReply: "POLICY"}
	retr := &fakeRetriever{}
	a := newTestAgent(llm, retr)

	resp, err := a.Ask(context.Background(), "What is the underwater basket weaving policy?", "")
	require.NoError(t, err)

	assert.Equal(t, prompts.NoInformationAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	// no synthesis call when there is nothing to ground on
	assert.Zero(t, llm.generateCalls)
}

func TestAskClarificationSkipsLLM(t *testing.T) {
	llm := &fakeLLM{classifyReply: "CLARIFICATION"}
	retr := &fakeRetriever{}
	a := newTestAgent(llm, retr)

	resp, err := a.Ask(context.Background(), "What about that?", "")
	require.NoError(t, err)

	assert.Equal(t, models.QueryClarification, resp.QueryType)
	assert.Equal(t, models.MethodDirect, resp.Method)
	assert.Equal(t, prompts.ClarificationAnswer, resp.Answer)
	assert.Zero(t, llm.generateCalls)
	assert.Zero(t, retr.calls)
}

func TestAskRetrievalFailureSurfaces(t *testing.T) {
	llm := &fakeLLM{classifyReply: "POLICY"}
	retr := &fakeRetriever{err: &models.StoreUnavailableError{Backend: "local", Err: fmt.Errorf("index gone")}}
	a := newTestAgent(llm, retr)

	_, err := a.Ask(context.Background(), "What is the vacation policy?", "")
	var storeErr *models.StoreUnavailableError
	require.ErrorAs(t, err, &storeErr)
}

func TestClassifyFallsBackToPolicy(t *testing.T) {
	retr := &fakeRetriever{passages: policyPassages()}

	t.Run("provider error", func(t *testing.T) {
		llm := &fakeLLM{classifyErr: fmt.Errorf("rate limited"), answerReply: "grounded answer"}
		a := newTestAgent(llm, retr)

		resp, err := a.Ask(context.Background(), "What are my benefits?", "")
		require.NoError(t, err)
		assert.Equal(t, models.QueryPolicy, resp.QueryType)
		assert.Equal(t, models.MethodRAG, resp.Method)
	})

	t.Run("unparseable label", func(t *testing.T) {
		llm := &fakeLLM{classifyReply: "I think this is a question about cats", answerReply: "grounded answer"}
		a := newTestAgent(llm, retr)

		resp, err := a.Ask(context.Background(), "What are my benefits?", "")
		require.NoError(t, err)
		assert.Equal(t, models.QueryPolicy, resp.QueryType)
	})
}

func TestClassifyMatchesNoisyLabels(t *testing.T) {
	a := newTestAgent(&fakeLLM{}, &fakeRetriever{})
	ctx := context.Background()

	tests := []struct {
		reply string
		want  models.QueryType
	}{
		{"GENERAL", models.QueryGeneral},
		{"general", models.QueryGeneral},
		{"The category is: POLICY.", models.QueryPolicy},
		{"CLARIFICATION", models.QueryClarification},
	}
	for _, tt := range tests {
		llm := &fakeLLM{classifyReply: tt.reply}
		a = newTestAgent(llm, &fakeRetriever{})
		got := a.Classify(ctx, "some question", nil)
		assert.Equal(t, tt.want, got, tt.reply)
	}
}

func TestAskValidatesQuery(t *testing.T) {
	a := newTestAgent(&fakeLLM{}, &fakeRetriever{})
	ctx := context.Background()

	_, err := a.Ask(ctx, "", "")
	assert.Error(t, err)

	_, err = a.Ask(ctx, "   \n ", "")
	assert.Error(t, err)

	_, err = a.Ask(ctx, strings.Repeat("a", 1001), "")
	assert.Error(t, err)

	llm := &fakeLLM{classifyReply: "GENERAL", answerReply: "ok"}
	a = newTestAgent(llm, &fakeRetriever{})
	_, err = a.Ask(ctx, strings.Repeat("a", 1000), "")
	assert.NoError(t, err)
}

func TestAskKeepsSessionAcrossTurns(t *testing.T) {
	llm := &fakeLLM{classifyReply: "GENERAL", answerReply: "answer"}
	a := newTestAgent(llm, &fakeRetriever{})
	ctx := context.Background()

	first, err := a.Ask(ctx, "first question", "")
	require.NoError(t, err)

	second, err := a.Ask(ctx, "second question", first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	history := a.memory.History(first.SessionID)
	require.Len(t, history, 4)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "first question", history[0].Text)
	assert.Equal(t, models.RoleAgent, history[1].Role)
	assert.Equal(t, "second question", history[2].Text)
}

func TestAskUnknownSessionStartsFresh(t *testing.T) {
	llm := &fakeLLM{classifyReply: "GENERAL", answerReply: "answer"}
	a := newTestAgent(llm, &fakeRetriever{})

	resp, err := a.Ask(context.Background(), "hello", "expired-session-id")
	require.NoError(t, err)
	assert.NotEqual(t, "expired-session-id", resp.SessionID)
	assert.NotEmpty(t, resp.SessionID)
}

func TestAskTurnsAppendedOnlyOnSuccess(t *testing.T) {
	llm := &fakeLLM{classifyReply: "GENERAL", answerErr: fmt.Errorf("provider down")}
	a := newTestAgent(llm, &fakeRetriever{})

	sessionID := a.memory.CreateSession()
	_, err := a.Ask(context.Background(), "hello", sessionID)
	require.Error(t, err)
	assert.Empty(t, a.memory.History(sessionID))
}

func TestAskReportsProcessingTime(t *testing.T) {
	llm := &fakeLLM{classifyReply: "CLARIFICATION"}
	a := newTestAgent(llm, &fakeRetriever{})

	resp, err := a.Ask(context.Background(), "hm?", "")
	require.NoError(t, err)
	assert.Greater(t, resp.ProcessingTime, time.Duration(0))
}

func TestExecuteToolDegradesGracefully(t *testing.T) {
	a := newTestAgent(&fakeLLM{}, &fakeRetriever{})

	_, ok := a.ExecuteTool(context.Background(), "no-such-tool", nil)
	assert.False(t, ok)
}

func TestExecuteTool(t *testing.T) {
	registry := tools.NewRegistry(&tools.Calculate{})
	a := New(&fakeLLM{}, &fakeRetriever{}, memory.New(time.Hour, time.Hour, 10), registry)

	out, ok := a.ExecuteTool(context.Background(), "calculate", map[string]any{"expression": "6*7"})
	require.True(t, ok)
	assert.Equal(t, 42.0, out)
}
