// Command ragcore runs the retrieval question-answering service: HTTP
// ingestion and query endpoints backed by an embedded vector index and
// file-based conversational memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/siftlabs/ragcore/answer"
	"github.com/siftlabs/ragcore/chunk"
	"github.com/siftlabs/ragcore/config"
	"github.com/siftlabs/ragcore/conversation"
	"github.com/siftlabs/ragcore/embed"
	"github.com/siftlabs/ragcore/embed/mock"
	"github.com/siftlabs/ragcore/embed/onnx"
	"github.com/siftlabs/ragcore/index/chromem"
	"github.com/siftlabs/ragcore/ingest"
	"github.com/siftlabs/ragcore/llm"
	"github.com/siftlabs/ragcore/memstore"
	"github.com/siftlabs/ragcore/retrieve"
	"github.com/siftlabs/ragcore/server"
)

const chatSystemPrompt = "You are a helpful assistant. Use the provided memories and knowledge base entries when they are relevant; otherwise answer from the conversation alone."

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	embedder, cleanup, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	defer cleanup()

	idx, err := chromem.New(chromem.Config{
		Dir:        cfg.Storage.IndexDir,
		Collection: cfg.Storage.Collection,
	}, logger)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
	}
	api := anthropic.NewClient(option.WithAPIKey(apiKey))
	model := llm.New(&api, llm.Config{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	retriever := retrieve.New(idx, embedder, retrieve.Config{
		K:      cfg.Retrieval.K,
		FetchK: cfg.Retrieval.FetchK,
		Lambda: cfg.Retrieval.Lambda,
	}, logger)

	splitter := chunk.NewSplitter(chunk.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
	}, logger)
	pipeline := ingest.NewPipeline(ingest.NewAutoFetcher(logger), splitter, embedder, idx, logger)
	jobs := ingest.NewJobs(pipeline, logger)

	store := memstore.New(cfg.Storage.MemoryDir, cfg.Storage.CheckpointDir, logger)
	responder := answer.NewResponder(retriever, model, chatSystemPrompt, logger)
	orchestrator := conversation.New(store, responder, logger)
	synthesizer := answer.NewSynthesizer(retriever, model, logger)

	srv := server.New(jobs, synthesizer, orchestrator, store, server.Config{
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// newEmbedder builds the configured embedder, wrapped in the in-process
// cache when enabled. The cleanup closes the cache and any native
// runtime the embedder holds.
func newEmbedder(cfg config.EmbeddingConfig) (embed.Embedder, func(), error) {
	var (
		inner embed.Embedder
		stop  func()
	)
	switch cfg.Provider {
	case "onnx":
		e, err := onnx.New(onnx.Config{
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			Dimensions:    cfg.Dimensions,
			LibraryPath:   cfg.LibraryPath,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load onnx embedder: %w", err)
		}
		inner, stop = e, func() { e.Close() }
	default:
		inner, stop = mock.New(cfg.Dimensions), func() {}
	}

	if cfg.CacheEntries <= 0 {
		return inner, stop, nil
	}
	cached, err := embed.NewCached(inner, cfg.CacheEntries)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return cached, func() { cached.Close(); stop() }, nil
}
