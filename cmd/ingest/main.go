package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"feedrag/internal/chunker"
	"feedrag/internal/config"
	"feedrag/internal/domain"
	"feedrag/internal/embedding/openai"
	"feedrag/internal/service"
	"feedrag/internal/vectorindex/memory"
	"feedrag/internal/vectorindex/pinecone"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, feedName string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/feedrag/config.yaml if not provided)")
	flag.StringVar(&feedName, "feed", "", "Feed schema to ingest under (events, news, posts)")
	flag.Parse()
	files := flag.Args()
	if feedName == "" || len(files) == 0 {
		fmt.Println("Usage: ingest --feed=posts [--config=config.yaml] export1.json [export2.json ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	schema, ok := cfg.Feed(feedName)
	if !ok {
		log.Fatalf("unknown feed %q", feedName)
	}

	embedder, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	var index domain.VectorIndex
	switch cfg.VectorIndex.Provider {
	case "pinecone", "":
		index, err = pinecone.NewClient(pinecone.Config{
			APIKeyEnv:  cfg.VectorIndex.Pinecone.APIKeyEnv,
			ControlURL: cfg.VectorIndex.Pinecone.ControlURL,
			Cloud:      cfg.VectorIndex.Pinecone.Cloud,
			Region:     cfg.VectorIndex.Pinecone.Region,
			Timeout:    time.Duration(cfg.VectorIndex.Pinecone.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("pinecone init failed: %v", err)
		}
	case "memory":
		index = memory.NewStore()
	default:
		log.Fatalf("unknown vector index provider: %s", cfg.VectorIndex.Provider)
	}

	ing := service.NewIngestor(embedder, index, chunker.NewFixed(cfg.Chunker.MaxChars), cfg.Ingest.BatchSize)
	ing.Progressf = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}
	ing.Warnf = func(format string, args ...any) {
		color.Yellow(format, args...)
	}

	ctx := context.Background()
	for _, path := range files {
		stats, err := ing.IngestFile(ctx, path, schema)
		if err != nil {
			log.Fatalf("ingest %s failed: %v", path, err)
		}
		color.Green("%s: %d vectors from %d documents (%d skipped, %d failed)",
			path, stats.Vectors, stats.Documents, stats.Skipped, stats.Failed)
	}
}
