// Package config loads the application configuration from YAML with
// sensible defaults for every section.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"feedrag/internal/feed"
)

// EmbedderConfig configures the embeddings client.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimension   int    `yaml:"dimension,omitempty"`
}

// PineconeConfig contains connection details for the Pinecone index
// provider.
type PineconeConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	ControlURL  string `yaml:"control_url,omitempty"`
	Cloud       string `yaml:"cloud"`
	Region      string `yaml:"region"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorIndexConfig selects and configures the vector index provider.
type VectorIndexConfig struct {
	Provider string          `yaml:"provider"`
	Pinecone *PineconeConfig `yaml:"pinecone,omitempty"`
}

// GeneratorConfig configures the completion client.
type GeneratorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig bounds chunk size.
type ChunkerConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// IngestConfig tunes the write path.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// QueryIndex names one index queried during fan-out.
type QueryIndex struct {
	Label string `yaml:"label"`
	Name  string `yaml:"name"`
}

// QueryConfig tunes the read path.
type QueryConfig struct {
	TopK    int          `yaml:"top_k"`
	Indices []QueryIndex `yaml:"indices"`
}

// AppConfig is the root configuration structure. Feeds defaults to the
// three builtin association feed schemas and can be overridden or
// extended in the file.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Query       QueryConfig       `yaml:"query"`
	Feeds       []feed.Schema     `yaml:"feeds,omitempty"`
}

// Feed resolves a feed schema by name, preferring file-defined schemas
// over the builtins.
func (c *AppConfig) Feed(name string) (feed.Schema, bool) {
	for _, s := range c.Feeds {
		if s.Name == name {
			return s, true
		}
	}
	return feed.Lookup(name)
}

// Load reads a config from the given path. A missing file yields the
// defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then
// ~/.config/feedrag/config.yaml. If neither exists it writes defaults
// to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as
// needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "feedrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.VectorIndex.Provider == "" {
		cfg.VectorIndex.Provider = "pinecone"
	}
	if cfg.VectorIndex.Provider == "pinecone" {
		if cfg.VectorIndex.Pinecone == nil {
			cfg.VectorIndex.Pinecone = &PineconeConfig{}
		}
		pc := cfg.VectorIndex.Pinecone
		if pc.APIKeyEnv == "" {
			pc.APIKeyEnv = "PINECONE_API_KEY"
		}
		if pc.Cloud == "" {
			pc.Cloud = "aws"
		}
		if pc.Region == "" {
			pc.Region = "us-east-1"
		}
		if pc.TimeoutSecs == 0 {
			pc.TimeoutSecs = 30
		}
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4.1-mini"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 120
	}
	if cfg.Chunker.MaxChars == 0 {
		cfg.Chunker.MaxChars = 2000
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 50
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 3
	}
	if len(cfg.Query.Indices) == 0 {
		cfg.Query.Indices = []QueryIndex{
			{Label: "posts", Name: feed.Posts.Index},
			{Label: "news", Name: feed.News.Index},
			{Label: "eventi", Name: feed.Events.Index},
		}
	}
}
