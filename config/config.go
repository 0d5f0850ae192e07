package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// OllamaConfig represents configuration for the Ollama embedding provider.
type OllamaConfig struct {
	Host    string `yaml:"host,omitempty"`    // Ollama host (default: "http://localhost:11434")
	Model   string `yaml:"model,omitempty"`   // Embedding model name
	Timeout int    `yaml:"timeout,omitempty"` // Request timeout in seconds
}

// OpenAIConfig represents configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // OpenAI API key
	BaseURL string `yaml:"base_url,omitempty"` // Custom base URL (default: official API)
	Model   string `yaml:"model,omitempty"`    // Embedding model name
}

// EmbeddingConfig selects and orders embedding providers.
// Providers are tried in order; the first available one wins. The hashed
// bag-of-words fallback is always appended, so embedding never hard-fails.
type EmbeddingConfig struct {
	Providers []string     `yaml:"providers,omitempty"` // Ordered preference list: "openai", "ollama", "hash"
	Ollama    OllamaConfig `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig `yaml:"openai,omitempty"`
}

// MemoryConfig tunes the context selector and memory stores.
type MemoryConfig struct {
	RecentLimit        int     `yaml:"recent_limit,omitempty"`        // Verbatim recent turns (default 5)
	ImportantLimit     int     `yaml:"important_limit,omitempty"`     // Important older turns (default 2)
	SummaryThreshold   int     `yaml:"summary_threshold,omitempty"`   // Summarize above this many turns (default 15)
	SemanticLimit      int     `yaml:"semantic_limit,omitempty"`      // Top-K semantic matches per bundle (default 3)
	StoreThreshold     float64 `yaml:"store_threshold,omitempty"`     // Importance needed for long-term storage (default 0.55)
	ProfileTTLHours    int     `yaml:"profile_ttl_hours,omitempty"`   // Emotional profile staleness window (default 12)
	ReflectionTTLHours int     `yaml:"reflection_ttl_hours,omitempty"` // Meta reflection staleness window (default 48)
	ProfileWindowDays  int     `yaml:"profile_window_days,omitempty"` // Analytics window for profiles (default 30)
}

// Config is the full daemon configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path,omitempty"` // SQLite database path
	} `yaml:"database,omitempty"`

	MigrationsPath string `yaml:"migrations_path,omitempty"` // Directory containing *.sql migrations

	Log struct {
		File   string `yaml:"file,omitempty"`   // Log file path (empty = stdout)
		Pretty bool   `yaml:"pretty,omitempty"` // Human-readable console output
	} `yaml:"log,omitempty"`

	Embedding EmbeddingConfig `yaml:"embedding,omitempty"`
	Memory    MemoryConfig    `yaml:"memory,omitempty"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Database.Path = "recall.db"
	cfg.MigrationsPath = "migrations"
	cfg.Embedding = EmbeddingConfig{
		Providers: []string{"ollama", "hash"},
		Ollama: OllamaConfig{
			Host:    "http://localhost:11434",
			Model:   "mxbai-embed-large",
			Timeout: 30,
		},
		OpenAI: OpenAIConfig{
			Model: "text-embedding-3-small",
		},
	}
	cfg.Memory = MemoryConfig{
		RecentLimit:        5,
		ImportantLimit:     2,
		SummaryThreshold:   15,
		SemanticLimit:      3,
		StoreThreshold:     0.55,
		ProfileTTLHours:    12,
		ReflectionTTLHours: 48,
		ProfileWindowDays:  30,
	}
	return cfg
}

// GetConfigPath returns the default config file path.
// Can be overridden via RECALL_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("RECALL_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.recall/config.yaml"
	}
	return filepath.Join(homeDir, ".recall", "config.yaml")
}

// Load reads the config file at path and merges it over the defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(expandPath(path)) //nolint:gosec // G304: user-specified config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// File values win over defaults; zero values fall through to defaults.
	if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}

	// Env overrides for credentials.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.OpenAI.APIKey == "" {
		cfg.Embedding.OpenAI.APIKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.Embedding.Ollama.Host = host
	}

	return cfg, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
