package src

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries everything one CLI invocation needs. Defaults match the
// local Ollama install; a .mori.yaml in the working directory and MORI_*
// environment variables override them, flags override both.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Model         string `yaml:"model"`
	MaxIterations int    `yaml:"max_iterations"`
	SSH           string `yaml:"ssh"`

	GenerateTimeout time.Duration `yaml:"-"`
	ExecTimeout     time.Duration `yaml:"-"`
	StartupTimeout  time.Duration `yaml:"-"`
}

const configFileName = ".mori.yaml"

func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            11434,
		Model:           "mistral",
		MaxIterations:   5,
		GenerateTimeout: 60 * time.Second,
		ExecTimeout:     30 * time.Second,
		StartupTimeout:  30 * time.Second,
	}
}

// LoadConfig resolves the effective configuration for dir. Missing config
// file and missing .env are both fine; only a malformed YAML file is an
// error.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()

	// .env is optional and only feeds the environment.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	path := filepath.Join(dir, configFileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if host, port, err := net.SplitHostPort(v); err == nil {
			cfg.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				cfg.Port = p
			}
		} else {
			cfg.Host = v
		}
	}
	if v := os.Getenv("MORI_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("MORI_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("MORI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MORI_SSH"); v != "" {
		cfg.SSH = v
	}
}

// BaseURL is the inference endpoint this config points at.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
