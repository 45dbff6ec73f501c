package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ragqa/internal/domain"
)

// DocumentsConfig points at the directory ingested by default.
type DocumentsConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type      string `yaml:"type" toml:"type"`
	ChunkSize int    `yaml:"chunk_size" toml:"chunk_size"`
	Overlap   int    `yaml:"overlap" toml:"overlap"`
}

// BackendConfig holds connection details shared by remote model backends.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	Model       string `yaml:"model,omitempty" toml:"model,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty" toml:"timeout_secs,omitempty"`
}

// LocalEmbedderConfig configures the offline hashing embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension" toml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string               `yaml:"type" toml:"type"`
	BatchSize   int                  `yaml:"batch_size" toml:"batch_size"`
	Concurrency int                  `yaml:"concurrency" toml:"concurrency"`
	MaxRetries  int                  `yaml:"max_retries" toml:"max_retries"`
	OpenAI      *BackendConfig       `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Ollama      *BackendConfig       `yaml:"ollama,omitempty" toml:"ollama,omitempty"`
	Gemini      *BackendConfig       `yaml:"gemini,omitempty" toml:"gemini,omitempty"`
	Local       *LocalEmbedderConfig `yaml:"local,omitempty" toml:"local,omitempty"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string         `yaml:"type" toml:"type"`
	MaxRetries  int            `yaml:"max_retries" toml:"max_retries"`
	CountTokens bool           `yaml:"count_tokens" toml:"count_tokens"`
	OpenAI      *BackendConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Ollama      *BackendConfig `yaml:"ollama,omitempty" toml:"ollama,omitempty"`
	Gemini      *BackendConfig `yaml:"gemini,omitempty" toml:"gemini,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type" toml:"type"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty" toml:"qdrant,omitempty"`
	PGVector *PGVectorConfig `yaml:"pgvector,omitempty" toml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" toml:"url"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	Collection  string `yaml:"collection" toml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// PGVectorConfig contains connection details for PostgreSQL with pgvector.
type PGVectorConfig struct {
	DSNEnv string `yaml:"dsn_env" toml:"dsn_env"`
	Table  string `yaml:"table" toml:"table"`
}

// IndexConfig is where the index and its metadata are persisted.
type IndexConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// RetrievalConfig controls query-time behaviour.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k" toml:"top_k"`
	PreviewChars int `yaml:"preview_chars" toml:"preview_chars"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms" toml:"debounce_ms"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents   DocumentsConfig   `yaml:"documents" toml:"documents"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator" toml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Index       IndexConfig       `yaml:"index" toml:"index"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Watch       WatchConfig       `yaml:"watch" toml:"watch"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, cwdPath := range []string{"config.yaml", "config.toml"} {
		if _, err := os.Stat(cwdPath); err == nil {
			cfg, err := Load(cwdPath)
			return cfg, cwdPath, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings that would fail later at ingest time.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkSize <= 0 || c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("%w: chunk_size=%d overlap=%d", domain.ErrInvalidChunkConfig, c.Chunker.ChunkSize, c.Chunker.Overlap)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k: %w", domain.ErrInvalidTopK)
	}
	if err := oneOf("chunker", c.Chunker.Type, "recursive"); err != nil {
		return err
	}
	if err := oneOf("embedder", c.Embedder.Type, "local", "openai", "ollama", "gemini"); err != nil {
		return err
	}
	if err := oneOf("generator", c.Generator.Type, "echo", "openai", "ollama", "gemini"); err != nil {
		return err
	}
	return oneOf("vector_store", c.VectorStore.Type, "flat", "qdrant", "pgvector")
}

func oneOf(section, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s type %q (want one of %s)", domain.ErrUnsupportedType, section, value, strings.Join(allowed, ", "))
}

// APIKey resolves the key for a backend from the environment. For Gemini,
// GOOGLE_API_KEY and GEMINI_API_KEY are both accepted.
func APIKey(b *BackendConfig) string {
	if b == nil || b.APIKeyEnv == "" {
		return ""
	}
	if v := os.Getenv(b.APIKeyEnv); v != "" {
		return v
	}
	switch b.APIKeyEnv {
	case "GOOGLE_API_KEY":
		return os.Getenv("GEMINI_API_KEY")
	case "GEMINI_API_KEY":
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

// Default returns a config that runs fully offline.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = "docs"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 1
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "echo"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "flat"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "index"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.PreviewChars == 0 {
		cfg.Retrieval.PreviewChars = 1000
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 1000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	applyBackendDefaults(cfg.Embedder.Type, &cfg.Embedder.OpenAI, &cfg.Embedder.Ollama, &cfg.Embedder.Gemini, false)
	applyBackendDefaults(cfg.Generator.Type, &cfg.Generator.OpenAI, &cfg.Generator.Ollama, &cfg.Generator.Gemini, true)

	if cfg.Embedder.Type == "local" && cfg.Embedder.Local == nil {
		cfg.Embedder.Local = &LocalEmbedderConfig{}
	}
	if cfg.Embedder.Local != nil && cfg.Embedder.Local.Dimension == 0 {
		cfg.Embedder.Local.Dimension = 256
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "ragqa"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.PGVector == nil {
		cfg.VectorStore.PGVector = &PGVectorConfig{}
	}
	if p := cfg.VectorStore.PGVector; p != nil {
		if p.DSNEnv == "" {
			p.DSNEnv = "DATABASE_URL"
		}
		if p.Table == "" {
			p.Table = "ragqa_vectors"
		}
	}
}

// applyBackendDefaults fills in the block of the selected remote backend,
// creating it when absent.
func applyBackendDefaults(kind string, openai, ollama, gemini **BackendConfig, generator bool) {
	ensure := func(b **BackendConfig) *BackendConfig {
		if *b == nil {
			*b = &BackendConfig{}
		}
		return *b
	}
	switch kind {
	case "openai":
		b := ensure(openai)
		setDefault(&b.BaseURL, "https://api.openai.com/v1")
		setDefault(&b.APIKeyEnv, "OPENAI_API_KEY")
		if generator {
			setDefault(&b.Model, "gpt-4o-mini")
		} else {
			setDefault(&b.Model, "text-embedding-3-small")
		}
		if b.TimeoutSecs == 0 {
			b.TimeoutSecs = 30
		}
	case "ollama":
		b := ensure(ollama)
		setDefault(&b.BaseURL, "http://localhost:11434")
		if generator {
			setDefault(&b.Model, "llama3.2")
		} else {
			setDefault(&b.Model, "nomic-embed-text")
		}
		if b.TimeoutSecs == 0 {
			b.TimeoutSecs = 120
		}
	case "gemini":
		b := ensure(gemini)
		setDefault(&b.BaseURL, "https://generativelanguage.googleapis.com")
		setDefault(&b.APIKeyEnv, "GOOGLE_API_KEY")
		if generator {
			setDefault(&b.Model, "gemini-2.5-flash")
		} else {
			setDefault(&b.Model, "gemini-embedding-001")
		}
		if b.TimeoutSecs == 0 {
			b.TimeoutSecs = 30
		}
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
