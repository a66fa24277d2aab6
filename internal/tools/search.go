package tools

import (
	"context"
	"fmt"

	"policybot/internal/models"
	"policybot/internal/retriever"
)

// PassageRetriever is the slice of the retriever the search tool needs.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error)
}

// SearchResult is what the search_documents tool returns to the agent.
type SearchResult struct {
	Passages []models.RetrievedPassage
	Sources  []string
	Count    int
}

// SearchDocuments searches the policy document index.
type SearchDocuments struct {
	Retriever PassageRetriever
}

func (s *SearchDocuments) Name() string { return "search_documents" }

func (s *SearchDocuments) Description() string {
	return "Search company policy documents for relevant information"
}

func (s *SearchDocuments) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("search_documents requires a query argument")
	}
	passages, err := s.Retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Passages: passages,
		Sources:  retriever.Sources(passages),
		Count:    len(passages),
	}, nil
}
