// Package config loads and validates application configuration. Values come
// from an optional config file and from DOCQA_* environment variables; the
// resulting Config is passed explicitly to every component constructor.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ChunkModeToken     = "token"
	ChunkModeCharacter = "character"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Store     StoreConfig     `mapstructure:"store"`
	Upload    UploadConfig    `mapstructure:"upload"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ChatModel      string `mapstructure:"chat_model"`
	Dimension      int    `mapstructure:"dimension"`
}

type ChunkingConfig struct {
	// Mode selects the chunking strategy explicitly: "token" or "character".
	Mode      string `mapstructure:"mode"`
	ChunkSize int    `mapstructure:"chunk_size"`
	Overlap   int    `mapstructure:"overlap"`
}

type EmbeddingConfig struct {
	BatchSize  int `mapstructure:"batch_size"`
	MaxRetries int `mapstructure:"max_retries"`
}

type RetrievalConfig struct {
	TopK    int `mapstructure:"top_k"`
	MaxTopK int `mapstructure:"max_top_k"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type UploadConfig struct {
	BlobDir           string   `mapstructure:"blob_dir"`
	MaxFileSizeMB     int      `mapstructure:"max_file_size_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// Load reads configuration from config.yaml (if present in the working
// directory) and the environment. Environment variables use the DOCQA_
// prefix with underscores, e.g. DOCQA_OPENAI_API_KEY.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("postgres_dsn", "postgres://localhost:5432/docqa?sslmode=disable")
	// Credentials have no meaningful default, but viper only reads env
	// overrides for keys it already knows, so register them empty.
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.dimension", 1536)
	v.SetDefault("chunking.mode", ChunkModeToken)
	v.SetDefault("chunking.chunk_size", 1000)
	v.SetDefault("chunking.overlap", 200)
	v.SetDefault("embedding.batch_size", 64)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.max_top_k", 20)
	v.SetDefault("store.driver", StorePostgres)
	v.SetDefault("upload.blob_dir", "./data/blobs")
	v.SetDefault("upload.max_file_size_mb", 50)
	v.SetDefault("upload.allowed_extensions", []string{".pdf", ".txt", ".md"})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("docqa")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations that can never work. These are fatal at
// startup, never retried.
func (c Config) Validate() error {
	if c.Chunking.Mode != ChunkModeToken && c.Chunking.Mode != ChunkModeCharacter {
		return fmt.Errorf("chunking.mode must be %q or %q, got %q", ChunkModeToken, ChunkModeCharacter, c.Chunking.Mode)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must satisfy 0 <= overlap < chunk_size, got overlap=%d chunk_size=%d", c.Chunking.Overlap, c.Chunking.ChunkSize)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must not be negative, got %d", c.Embedding.MaxRetries)
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.MaxTopK < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.top_k must satisfy 0 < top_k <= max_top_k, got top_k=%d max_top_k=%d", c.Retrieval.TopK, c.Retrieval.MaxTopK)
	}
	if c.Store.Driver != StorePostgres && c.Store.Driver != StoreMemory {
		return fmt.Errorf("store.driver must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store.Driver)
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive, got %d", c.Upload.MaxFileSizeMB)
	}
	return nil
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.Upload.MaxFileSizeMB) << 20
}

// ExtensionAllowed reports whether ext (including the leading dot, any case)
// is an accepted upload type.
func (c Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.Upload.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
