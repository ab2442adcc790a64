package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/mlevan/docqa/answer"
	"github.com/mlevan/docqa/api"
	"github.com/mlevan/docqa/blobstore"
	"github.com/mlevan/docqa/chunking"
	"github.com/mlevan/docqa/config"
	"github.com/mlevan/docqa/database"
	"github.com/mlevan/docqa/embeddings"
	"github.com/mlevan/docqa/index"
	"github.com/mlevan/docqa/ingestion"
	"github.com/mlevan/docqa/llm"
	"github.com/mlevan/docqa/query"
	"github.com/mlevan/docqa/retrieval"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "delete":
		deleteCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// services holds the wired pipeline shared by all commands.
type services struct {
	ingester *ingestion.Service
	querier  *query.Service
	close    func()
}

func buildServices(ctx context.Context, cfg config.Config, logger *log.Logger) (*services, error) {
	var (
		store   index.Store
		cleanup func()
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		pgStore, err := index.NewPostgresStore(pool, cfg.OpenAI.Dimension)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("vector store setup: %w", err)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = pgStore
		cleanup = pool.Close
	case config.StoreMemory:
		store = index.NewMemoryStore()
		cleanup = func() {}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	chunker, err := chunking.New(cfg.Chunking)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("chunker setup: %w", err)
	}

	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAI, cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewOpenAIClient(cfg.OpenAI, cfg.Embedding.MaxRetries)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	blobs, err := blobstore.NewLocalStore(cfg.Upload.BlobDir)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("blob store setup: %w", err)
	}

	retriever := retrieval.New(store, cfg.Retrieval, logger)
	composer := answer.NewComposer(llmClient, logger)

	return &services{
		ingester: ingestion.NewService(chunker, embedder, store, blobs, logger),
		querier:  query.NewService(embedder, retriever, composer, logger),
		close:    cleanup,
	}, nil
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "address to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}
	cfg.HTTPAddr = *addr

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer svcs.close()

	server := api.New(cfg, svcs.ingester, svcs.querier, logger)
	logger.Printf("listening on %s (store=%s, chunking=%s)", cfg.HTTPAddr, cfg.Store.Driver, cfg.Chunking.Mode)

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("server: %v", err)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := flags.String("file", "", "path to a document to ingest (.pdf, .txt, .md)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}
	if strings.TrimSpace(*path) == "" {
		logger.Fatal("ingest requires --file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer svcs.close()

	data, err := os.ReadFile(*path)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	result, err := svcs.ingester.IngestDocument(ctx, *path, "", data)
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
	if result.ChunkCount == 0 {
		logger.Printf("no text extracted from %s, nothing indexed", *path)
		return
	}
	logger.Printf("indexed %s as %s (%d chunks)", *path, result.FileID, result.ChunkCount)
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to ask over the indexed documents")
	topK := flags.Int("top-k", 0, "number of chunks to retrieve (0 uses the configured default)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}
	if strings.TrimSpace(*question) == "" {
		logger.Fatal("ask requires --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer svcs.close()

	resp, err := svcs.querier.Ask(ctx, *question, *topK)
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range resp.Sources {
			fmt.Printf("%d. %s (chunk %d, score %.3f)\n", idx+1, source.Filename, source.ChunkIndex, source.Score)
		}
	}
}

func deleteCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("delete", flag.ExitOnError)
	id := flags.String("id", "", "file id of the document to delete")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse delete flags: %v", err)
	}

	fileID, err := uuid.Parse(strings.TrimSpace(*id))
	if err != nil {
		logger.Fatalf("delete requires a valid --id: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svcs, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer svcs.close()

	if err := svcs.ingester.DeleteDocument(ctx, fileID); err != nil {
		logger.Fatalf("delete failed: %v", err)
	}
	logger.Printf("deleted document %s and its chunks", fileID)
}

func printUsage() {
	fmt.Println("Usage: docqa <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API for uploads and question answering")
	fmt.Println("  ingest   Index a single document from disk (use --file)")
	fmt.Println("  ask      Ask a question over the indexed documents (use --question)")
	fmt.Println("  delete   Remove a document and its chunks (use --id)")
	fmt.Println("Configuration comes from config.yaml and DOCQA_* environment variables.")
}
