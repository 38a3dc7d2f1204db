package config

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ragsearch/internal/domain"
)

// APIKeyEnv fills the retriever's api_key when the file leaves it out.
const APIKeyEnv = "RAGSEARCH_API_KEY"

// Config holds all configuration for ragsearch.
type Config struct {
	Retriever map[string]any `yaml:"retriever"`
	HTTP      HTTPConfig     `yaml:"http"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds settings for the extraction client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Retriever: map[string]any{},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. Variables from a .env file
// next to it, or in the working directory, are loaded first.
func Load(path string) (*Config, error) {
	loadDotEnv(filepath.Dir(path))
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Retriever == nil {
		cfg.Retriever = map[string]any{}
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragsearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	loadDotEnv(dir)
	return DefaultConfig(), nil
}

// godotenv never overrides variables that are already set.
func loadDotEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	_ = godotenv.Load(".env")
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// envRef matches ${NAME}. A bare $ is kept literally.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// RetrieverConfig returns the factory configuration with ${VAR}
// references expanded. api_key falls back to RAGSEARCH_API_KEY.
func (c *Config) RetrieverConfig() domain.Configuration {
	rc := domain.ConfigurationFrom(c.Retriever)
	for k, v := range rc {
		rc[k] = expandEnv(v)
	}
	if rc.Get(domain.KeyAPIKey) == "" {
		if key := os.Getenv(APIKeyEnv); key != "" {
			rc[domain.KeyAPIKey] = key
		}
	}
	return rc
}
