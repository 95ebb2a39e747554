package normdoc

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the normdoc engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.normdoc/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "normdoc".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not explicitly set. "home" (default) uses ~/.normdoc/, "local"
	// uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Embedding configures the embedding endpoint. Leave Provider empty
	// to run without vector search (FTS only).
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// EmbeddingDim must match the embedding model's output size.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// Chunking
	SectionSplitThreshold int `json:"section_split_threshold" yaml:"section_split_threshold"`
	ChunkTarget           int `json:"chunk_target" yaml:"chunk_target"`
	ChunkOverlap          int `json:"chunk_overlap" yaml:"chunk_overlap"`
	MinChunkChars         int `json:"min_chunk_chars" yaml:"min_chunk_chars"`

	// DisableIntelligent forces fallback-only processing.
	DisableIntelligent bool `json:"disable_intelligent" yaml:"disable_intelligent"`

	// Server
	Server ServerConfig `json:"server" yaml:"server"`
}

// LLMConfig configures a single model endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // lmstudio, ollama, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	AuthToken string `json:"auth_token" yaml:"auth_token"` // optional bearer token
}

// DefaultConfig returns a Config with sensible defaults for local
// inference. Database is stored in ~/.normdoc/normdoc.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "normdoc",
		StorageDir: "home",
		Embedding: LLMConfig{
			Provider: "lmstudio",
			Model:    "text-embedding-nomic-embed-text-v1.5",
			BaseURL:  "http://localhost:1234",
		},
		EmbeddingDim:          768,
		SectionSplitThreshold: 1200,
		ChunkTarget:           800,
		ChunkOverlap:          100,
		MinChunkChars:         100,
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "normdoc"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".normdoc", name+".db")
	}
}
