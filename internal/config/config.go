package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bankbot/internal/classifier"
	"bankbot/internal/service"
)

// EnvPrefix namespaces environment overrides, e.g. BANKBOT_GATEWAY_MODEL.
const EnvPrefix = "BANKBOT_"

// GatewayConfig points at the Ollama server answering chat turns.
type GatewayConfig struct {
	BaseURL     string  `yaml:"base_url" env:"BASE_URL"`
	Mode        string  `yaml:"mode" env:"MODE"`
	Model       string  `yaml:"model" env:"MODEL"`
	AutoDetect  bool    `yaml:"auto_detect" env:"AUTO_DETECT"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	TimeoutSecs int     `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
	// Mock answers from the retrieved context without a model server.
	Mock bool `yaml:"mock" env:"MOCK"`
}

// ChunkerConfig sets the character window used for documents.
type ChunkerConfig struct {
	Size    int `yaml:"size" env:"SIZE"`
	Overlap int `yaml:"overlap" env:"OVERLAP"`
}

type RetrievalConfig struct {
	MaxChunks     int      `yaml:"max_chunks" env:"MAX_CHUNKS"`
	KBResults     int      `yaml:"kb_results" env:"KB_RESULTS"`
	BatchLimit    int      `yaml:"batch_limit" env:"BATCH_LIMIT"`
	KnowledgeBase []string `yaml:"knowledge_base,omitempty" env:"KNOWLEDGE_BASE" envSeparator:","`
}

// ClassifierConfig replaces the built-in vocabulary when lists are non-empty.
type ClassifierConfig struct {
	Keywords []string             `yaml:"keywords,omitempty" env:"KEYWORDS" envSeparator:","`
	Synonyms []classifier.Synonym `yaml:"synonyms,omitempty"`
	Cutoff   float64              `yaml:"cutoff" env:"CUTOFF"`
}

// OllamaEmbedderConfig configures the HTTP embeddings client.
type OllamaEmbedderConfig struct {
	BaseURL         string `yaml:"base_url" env:"BASE_URL"`
	Path            string `yaml:"path" env:"PATH"`
	Model           string `yaml:"model" env:"MODEL"`
	APIKey          string `yaml:"api_key,omitempty" env:"API_KEY"`
	TimeoutSecs     int    `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
	Attempts        uint   `yaml:"attempts" env:"ATTEMPTS"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" env:"CACHE_TTL_MINUTES"`
}

// EmbedderConfig selects the knowledge base embedder: none, tfidf or ollama.
type EmbedderConfig struct {
	Type   string               `yaml:"type" env:"TYPE"`
	Ollama OllamaEmbedderConfig `yaml:"ollama" envPrefix:"OLLAMA_"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" env:"URL"`
	APIKey      string `yaml:"api_key,omitempty" env:"API_KEY"`
	Collection  string `yaml:"collection" env:"COLLECTION"`
	Distance    string `yaml:"distance" env:"DISTANCE"`
	TimeoutSecs int    `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
}

// VectorStoreConfig selects memory or qdrant.
type VectorStoreConfig struct {
	Type   string       `yaml:"type" env:"TYPE"`
	Qdrant QdrantConfig `yaml:"qdrant" envPrefix:"QDRANT_"`
}

type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences" env:"MAX_SENTENCES"`
}

type SessionConfig struct {
	TTLMinutes     int   `yaml:"ttl_minutes" env:"TTL_MINUTES"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

type ServerConfig struct {
	Addr               string `yaml:"addr" env:"ADDR"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" env:"REQUEST_TIMEOUT_SECS"`
	ShutdownSecs       int    `yaml:"shutdown_secs" env:"SHUTDOWN_SECS"`
}

type TelegramConfig struct {
	Token         string `yaml:"token,omitempty" env:"TOKEN"`
	UpdateTimeout int    `yaml:"update_timeout" env:"UPDATE_TIMEOUT"`
	Debug         bool   `yaml:"debug" env:"DEBUG"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	File  string `yaml:"file" env:"FILE"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Gateway     GatewayConfig      `yaml:"gateway" envPrefix:"GATEWAY_"`
	Chunker     ChunkerConfig      `yaml:"chunker" envPrefix:"CHUNKER_"`
	Retrieval   RetrievalConfig    `yaml:"retrieval" envPrefix:"RETRIEVAL_"`
	Classifier  ClassifierConfig   `yaml:"classifier" envPrefix:"CLASSIFIER_"`
	Embedder    EmbedderConfig     `yaml:"embedder" envPrefix:"EMBEDDER_"`
	VectorStore VectorStoreConfig  `yaml:"vector_store" envPrefix:"VECTOR_STORE_"`
	Summarizer  SummarizerConfig   `yaml:"summarizer" envPrefix:"SUMMARIZER_"`
	Session     SessionConfig      `yaml:"session" envPrefix:"SESSION_"`
	Server      ServerConfig       `yaml:"server" envPrefix:"SERVER_"`
	Telegram    TelegramConfig     `yaml:"telegram" envPrefix:"TELEGRAM_"`
	Log         LogConfig          `yaml:"log" envPrefix:"LOG_"`
	FAQ         []service.FAQEntry `yaml:"faq,omitempty"`
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a config from path, falling back to defaults when the file does
// not exist, then applies BANKBOT_* environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/bankbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/bankbot/config.yaml and returns them.
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
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports every out-of-range setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Gateway.Temperature < 0 || c.Gateway.Temperature > 1 {
		errs = append(errs, fmt.Errorf("gateway.temperature must be between 0 and 1, got %v", c.Gateway.Temperature))
	}
	switch c.Gateway.Mode {
	case "generate", "chat":
	default:
		errs = append(errs, fmt.Errorf("gateway.mode must be generate or chat, got %q", c.Gateway.Mode))
	}
	if c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker.overlap (%d) must be smaller than chunker.size (%d)", c.Chunker.Overlap, c.Chunker.Size))
	}
	switch c.Embedder.Type {
	case "none", "tfidf", "ollama":
	default:
		errs = append(errs, fmt.Errorf("embedder.type must be none, tfidf or ollama, got %q", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case "memory", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("vector_store.type must be memory or qdrant, got %q", c.VectorStore.Type))
	}
	for i, f := range c.FAQ {
		if strings.TrimSpace(f.Key) == "" {
			errs = append(errs, fmt.Errorf("faq[%d].key is empty", i))
		}
	}
	return errors.Join(errs...)
}

func (g GatewayConfig) Timeout() time.Duration { return seconds(g.TimeoutSecs) }

func (s SessionConfig) TTL() time.Duration { return time.Duration(s.TTLMinutes) * time.Minute }

func (s ServerConfig) RequestTimeout() time.Duration { return seconds(s.RequestTimeoutSecs) }

func (s ServerConfig) ShutdownTimeout() time.Duration { return seconds(s.ShutdownSecs) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bankbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Gateway: GatewayConfig{
			BaseURL:     "http://127.0.0.1:11434",
			Mode:        "generate",
			Model:       "qwen2.5:1.5b",
			Temperature: 0.7,
			MaxTokens:   512,
			TimeoutSecs: 60,
		},
		Chunker:     ChunkerConfig{Size: 800, Overlap: 100},
		Retrieval:   RetrievalConfig{MaxChunks: 3, KBResults: 3, BatchLimit: 20},
		Classifier:  ClassifierConfig{Cutoff: classifier.DefaultCutoff},
		Embedder:    EmbedderConfig{Type: "none"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{MaxSentences: 3},
		Session:     SessionConfig{TTLMinutes: 120, MaxUploadBytes: 10 << 20},
		Server:      ServerConfig{Addr: ":8080", RequestTimeoutSecs: 180, ShutdownSecs: 15},
		Telegram:    TelegramConfig{UpdateTimeout: 60},
		Log:         LogConfig{Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	cfg.Gateway.Mode = strings.ToLower(strings.TrimSpace(cfg.Gateway.Mode))
	if cfg.Gateway.Mode == "" {
		cfg.Gateway.Mode = "generate"
	}
	if cfg.Gateway.MaxTokens <= 0 {
		cfg.Gateway.MaxTokens = 512
	}
	if cfg.Gateway.TimeoutSecs <= 0 {
		cfg.Gateway.TimeoutSecs = 60
	}
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker.Size = 800
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 0
	}
	cfg.Embedder.Type = strings.ToLower(cfg.Embedder.Type)
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "none"
	}
	if cfg.Embedder.Type == "ollama" {
		o := &cfg.Embedder.Ollama
		if o.BaseURL == "" {
			o.BaseURL = cfg.Gateway.BaseURL
		}
		if o.Model == "" {
			o.Model = "nomic-embed-text"
		}
		if o.TimeoutSecs <= 0 {
			o.TimeoutSecs = 30
		}
	}
	cfg.VectorStore.Type = strings.ToLower(cfg.VectorStore.Type)
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		q := &cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://127.0.0.1:6333"
		}
		if q.Collection == "" {
			q.Collection = "bank_faqs"
		}
		if q.Distance == "" {
			q.Distance = "Cosine"
		}
	}
	if cfg.Session.MaxUploadBytes <= 0 {
		cfg.Session.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownSecs <= 0 {
		cfg.Server.ShutdownSecs = 15
	}
	if cfg.Telegram.UpdateTimeout <= 0 {
		cfg.Telegram.UpdateTimeout = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
