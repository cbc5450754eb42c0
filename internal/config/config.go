package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingSecret is returned by Validate when a required API key is not set.
var ErrMissingSecret = errors.New("missing required secret")

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Sentinel     string `yaml:"sentinel"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"`
	Key       string `yaml:"-"`
}

type LLMConfig struct {
	Provider      string        `yaml:"provider"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	FallbackModel string        `yaml:"fallback_model"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Temperature   float64       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	Key           string        `yaml:"-"`
}

type WebSearchConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxResults  int           `yaml:"max_results"`
	SearchDepth string        `yaml:"search_depth"`
	Timeout     time.Duration `yaml:"timeout"`
	Key         string        `yaml:"-"`
}

type IndexConfig struct {
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path"`
	InMemory         bool   `yaml:"in_memory"`
	Compress         bool   `yaml:"compress"`
	Collection       string `yaml:"collection"`
	EncryptionKeyEnv string `yaml:"encryption_key_env"`
	EncryptionKey    string `yaml:"-"`
}

type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	PasswordEnv string `yaml:"password_env"`
	Debug       bool   `yaml:"debug"`
	Password    string `yaml:"-"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type TelemetryConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type UIConfig struct {
	Title    string   `yaml:"title"`
	Subtitle string   `yaml:"subtitle"`
	Greeting string   `yaml:"greeting"`
	Topics   []string `yaml:"topics"`
}

type Config struct {
	DataDir    string          `yaml:"data_dir"`
	Extensions []string        `yaml:"extensions"`
	Log        LogConfig       `yaml:"log"`
	RAG        RAGConfig       `yaml:"rag"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	LLM        LLMConfig       `yaml:"llm"`
	WebSearch  WebSearchConfig `yaml:"web_search"`
	Index      IndexConfig     `yaml:"index"`
	Database   DatabaseConfig  `yaml:"database"`
	Server     ServerConfig    `yaml:"server"`
	Session    SessionConfig   `yaml:"session"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	UI         UIConfig        `yaml:"ui"`
}

// LoadConfig reads the YAML file at path, applies defaults and resolves
// secrets from the environment. A missing file yields the default config.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := presetDefaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.resolveSecrets()
	return &cfg, nil
}

// Validate checks that both API keys needed to answer questions are present.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.Key == "" {
		missing = append(missing, c.LLM.APIKeyEnv)
	}
	if c.WebSearch.Key == "" {
		missing = append(missing, c.WebSearch.APIKeyEnv)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSecret, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) resolveSecrets() {
	c.LLM.Key = strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
	c.WebSearch.Key = strings.TrimSpace(os.Getenv(c.WebSearch.APIKeyEnv))
	c.Embedding.Key = strings.TrimSpace(os.Getenv(c.Embedding.APIKeyEnv))
	c.Index.EncryptionKey = os.Getenv(c.Index.EncryptionKeyEnv)
	c.Database.Password = os.Getenv(c.Database.PasswordEnv)
}

// presetDefaults fills the settings for which zero is a valid choice. They are
// set before decoding so an explicit 0 in the file is kept.
func presetDefaults() Config {
	var cfg Config
	cfg.RAG.ChunkOverlap = 200
	cfg.LLM.Temperature = 0.2
	cfg.LLM.MaxRetries = 2
	cfg.LLM.RatePerMinute = 60
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx", ".pptx"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap < 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.Sentinel == "" {
		cfg.RAG.Sentinel = "NOT_FOUND"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "auto"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.LLM.Temperature < 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.MaxRetries < 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.RatePerMinute < 0 {
		cfg.LLM.RatePerMinute = 60
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Provider == "ollama" {
		if cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = "http://localhost:11434"
		}
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "all-minilm"
		}
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = cfg.LLM.APIKeyEnv
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}

	if cfg.WebSearch.Provider == "" {
		cfg.WebSearch.Provider = "tavily"
	}
	if cfg.WebSearch.BaseURL == "" {
		cfg.WebSearch.BaseURL = "https://api.tavily.com"
	}
	if cfg.WebSearch.APIKeyEnv == "" {
		cfg.WebSearch.APIKeyEnv = "TAVILY_API_KEY"
	}
	if cfg.WebSearch.MaxResults <= 0 {
		cfg.WebSearch.MaxResults = 3
	}
	if cfg.WebSearch.SearchDepth == "" {
		cfg.WebSearch.SearchDepth = "basic"
	}
	if cfg.WebSearch.Timeout == 0 {
		cfg.WebSearch.Timeout = 20 * time.Second
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "chromem"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./chromemdb"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "telecom"
	}
	if cfg.Index.EncryptionKeyEnv == "" {
		cfg.Index.EncryptionKeyEnv = "INDEX_ENCRYPTION_KEY"
	}
	if cfg.Database.PasswordEnv == "" {
		cfg.Database.PasswordEnv = "DATABASE_PASSWORD"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "telecom-assistant"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 0.1
	}

	if cfg.UI.Title == "" {
		cfg.UI.Title = "Telecom Support Assistant"
	}
	if cfg.UI.Subtitle == "" {
		cfg.UI.Subtitle = "Ask me about Data Packages, Routers, and Services"
	}
	if cfg.UI.Greeting == "" {
		cfg.UI.Greeting = "Hello! I can help you find the best data packages or fix router issues. What do you need today?"
	}
	if len(cfg.UI.Topics) == 0 {
		cfg.UI.Topics = []string{"Data Packages", "Home Broadband", "Troubleshooting", "Hotlines"}
	}
}
