package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"telecom-assistant/internal/chromemdb"
	"telecom-assistant/internal/config"
	"telecom-assistant/internal/db"
	"telecom-assistant/internal/embedding"
	"telecom-assistant/internal/helper"
	"telecom-assistant/internal/index"
	"telecom-assistant/internal/llmservice"
	"telecom-assistant/internal/logger"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/parser"
	"telecom-assistant/internal/rag"
	"telecom-assistant/internal/server"
	"telecom-assistant/internal/session"
	"telecom-assistant/internal/telemetry"
	"telecom-assistant/internal/tui"
	"telecom-assistant/internal/websearch"
)

const tuiLogFile = "telecom-assistant.log"

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	query := flag.String("query", "", "Answer a single question and exit")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk the data folder, print the chunks and exit")
	useTUI := flag.Bool("tui", false, "Chat in the terminal instead of serving HTTP")
	export := flag.Bool("export", false, "Build the index and write an encrypted snapshot")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *useTUI {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetupWriter(cfg.Log, f)
	} else {
		logger.Setup(cfg.Log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *dryRun:
		err = printChunks(os.Stdout, cfg)
	case *export:
		err = exportIndex(ctx, cfg)
	default:
		err = run(ctx, cfg, *query, *useTUI)
	}
	if err != nil {
		stop()
		log.Fatal().Err(err).Msg("Exiting")
	}
}

// run wires the assistant and serves it over HTTP, the terminal UI or a single query.
// Both API keys are checked before anything is built.
func run(ctx context.Context, cfg *config.Config, query string, useTUI bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Error shutting down tracer")
		}
	}()

	metrics := telemetry.NewMetrics()

	lazy, closeStore, err := newIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	llm, err := llmservice.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm: %w", err)
	}

	assistant := rag.NewAssistant(
		rag.LazyRetriever{Index: lazy},
		llm,
		websearch.NewTavily(cfg.WebSearch),
		rag.Options{
			TopK:          cfg.RAG.TopK,
			MaxWebResults: cfg.WebSearch.MaxResults,
			Sentinel:      cfg.RAG.Sentinel,
			Metrics:       metrics,
		},
	)

	if query != "" {
		return answerOnce(ctx, os.Stdout, assistant, query)
	}

	// build the index in the background
	go func() {
		idx, err := lazy.Get(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Error building document index")
			return
		}
		metrics.SetIndexedChunks(idx.Len())
	}()

	if useTUI {
		_, err := tea.NewProgram(tui.New(ctx, assistant, cfg.UI), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}

	sessions, err := session.New(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}
	if c, ok := sessions.(io.Closer); ok {
		defer c.Close()
	}

	srv, err := server.New(cfg, assistant, sessions, lazy, metrics)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	return srv.Run(ctx)
}

// newIndex builds the lazily initialised document index on the configured store.
func newIndex(ctx context.Context, cfg *config.Config) (*index.Lazy, func(), error) {
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	builder, err := newBuilder(ctx, cfg, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return index.NewLazy(builder.Build), closeStore, nil
}

func newBuilder(ctx context.Context, cfg *config.Config, store index.Store) (*index.Builder, error) {
	embedder, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &index.Builder{
		DataDir:    cfg.DataDir,
		Extensions: cfg.Extensions,
		Chunker:    parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		Embedder:   embedder,
		Store:      store,
		Model:      cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (index.Store, func(), error) {
	switch cfg.Index.Backend {
	case "pgvector", "postgres":
		store, err := db.NewStore(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("init pgvector store: %w", err)
		}
		return store, func() { store.Close() }, nil
	case "chromem":
		if !cfg.Index.InMemory {
			if err := helper.CreateFolder(cfg.Index.Path); err != nil {
				return nil, nil, err
			}
		}
		store, err := chromemdb.NewVectorDBManager(cfg.Index)
		if err != nil {
			return nil, nil, fmt.Errorf("init chromem store: %w", err)
		}
		if cfg.Index.InMemory && cfg.Index.EncryptionKey != "" {
			if err := store.Import(ctx, ""); err != nil {
				log.Warn().Err(err).Msg("Ignoring unreadable index snapshot")
			}
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func answerOnce(ctx context.Context, w io.Writer, assistant *rag.Assistant, query string) error {
	_, answer := assistant.Respond(ctx, models.Conversation{}, query)

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n\n", answer.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n\n", answer.Text)
	return nil
}

func printChunks(w io.Writer, cfg *config.Config) error {
	docs, err := parser.LoadDirectory(cfg.DataDir, cfg.Extensions)
	if err != nil {
		return err
	}
	chunks := parser.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap).SplitAll(docs)
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(w, chunks)
	return nil
}

func exportIndex(ctx context.Context, cfg *config.Config) error {
	if cfg.Index.Backend != "chromem" {
		return fmt.Errorf("export needs the chromem backend, got %q", cfg.Index.Backend)
	}
	if err := helper.CreateFolder(cfg.Index.Path); err != nil {
		return err
	}
	store, err := chromemdb.NewVectorDBManager(cfg.Index)
	if err != nil {
		return err
	}
	builder, err := newBuilder(ctx, cfg, store)
	if err != nil {
		return err
	}
	idx, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	if idx.Empty() {
		return errors.New("no chunks to export")
	}
	path, err := store.Export(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("file", path).Int("chunks", idx.Len()).Msg("Exported index snapshot")
	return nil
}
