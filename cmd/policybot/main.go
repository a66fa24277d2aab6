package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"policybot/internal/agent"
	"policybot/internal/config"
	"policybot/internal/embedder"
	"policybot/internal/ingest"
	"policybot/internal/llmclient"
	"policybot/internal/memory"
	"policybot/internal/processor"
	"policybot/internal/retriever"
	"policybot/internal/tools"
	"policybot/internal/vectorstore"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	ingestDir := flag.String("ingest", "", "Directory of policy documents to ingest")
	query := flag.String("query", "", "Ask a single question")
	chat := flag.Bool("chat", false, "Start an interactive chat session")
	sessionID := flag.String("session", "", "Reuse an existing session ID")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := context.Background()

	switch {
	case *ingestDir != "":
		runIngest(ctx, cfg, *ingestDir)
	case *query != "":
		runQuery(ctx, cfg, *query, *sessionID)
	case *chat:
		runChat(ctx, cfg, *sessionID)
	default:
		log.Fatal().Msg("Provide -ingest, -query or -chat")
	}
}

func buildStore(ctx context.Context, cfg *config.Config) vectorstore.Store {
	switch cfg.VectorStore.Backend {
	case config.BackendPostgres:
		store := vectorstore.NewPostgresStore(cfg.VectorStore)
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing vector store")
		}
		return store
	default:
		store, err := vectorstore.NewChromemStore(cfg.VectorStore.Path, cfg.VectorStore.Collection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening local vector store")
		}
		return store
	}
}

func buildAgent(ctx context.Context, cfg *config.Config) *agent.Agent {
	emb, err := embedder.New(ctx, cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	store := buildStore(ctx, cfg)
	retr := retriever.New(emb, store, cfg.RAG.TopK, cfg.RAG.SimilarityThreshold)

	llm, err := llmclient.New(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	mem := memory.New(cfg.Session.TTL, cfg.Session.CleanupInterval, cfg.Session.MaxHistory)
	registry := tools.NewRegistry(&tools.SearchDocuments{Retriever: retr}, &tools.Calculate{})

	return agent.New(llm, retr, mem, registry)
}

func runIngest(ctx context.Context, cfg *config.Config, dir string) {
	emb, err := embedder.New(ctx, cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	store := buildStore(ctx, cfg)
	proc := processor.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	stats, err := ingest.New(proc, emb, store).IngestDir(ctx, dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting documents")
	}
	fmt.Printf("Ingested %d documents (%d chunks, %d failures)\n", stats.Documents, stats.Chunks, stats.Failures)
}

func runQuery(ctx context.Context, cfg *config.Config, query, sessionID string) {
	bot := buildAgent(ctx, cfg)
	resp, err := bot.Ask(ctx, query, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}
	printResponse(resp.Answer, resp.Sources)
	log.Info().
		Str("session_id", resp.SessionID).
		Str("query_type", string(resp.QueryType)).
		Str("method", string(resp.Method)).
		Dur("processing_time", resp.ProcessingTime).
		Msg("answered")
}

func runChat(ctx context.Context, cfg *config.Config, sessionID string) {
	bot := buildAgent(ctx, cfg)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("PolicyBot ready. Type a question, or 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		resp, err := bot.Ask(ctx, line, sessionID)
		if err != nil {
			log.Error().Err(err).Msg("Error answering query")
			continue
		}
		sessionID = resp.SessionID
		printResponse(resp.Answer, resp.Sources)
	}
}

func printResponse(answer string, sources []string) {
	fmt.Printf("\n%s\n", answer)
	if len(sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(sources, "; "))
	}
	fmt.Println()
}
