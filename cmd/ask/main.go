package main

import (
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"feedrag/internal/config"
	"feedrag/internal/domain"
	embopenai "feedrag/internal/embedding/openai"
	llmopenai "feedrag/internal/llm/openai"
	"feedrag/internal/service"
	"feedrag/internal/tui"
	"feedrag/internal/vectorindex/memory"
	"feedrag/internal/vectorindex/pinecone"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/feedrag/config.yaml if not provided)")
	flag.Parse()

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

	embedder, err := embopenai.NewClient(embopenai.Config{
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

	generator, err := llmopenai.NewClient(llmopenai.Config{
		BaseURL:   cfg.Generator.BaseURL,
		APIKeyEnv: cfg.Generator.APIKeyEnv,
		Model:     cfg.Generator.Model,
		Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	indices := make([]service.IndexRef, 0, len(cfg.Query.Indices))
	for _, qi := range cfg.Query.Indices {
		indices = append(indices, service.IndexRef{Label: qi.Label, Name: qi.Name})
	}
	asker := service.NewAsker(embedder, index, generator, indices, cfg.Query.TopK)
	// stderr, so warnings don't fight the TUI for the screen
	asker.Warnf = log.Printf

	m := tui.New(asker)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
