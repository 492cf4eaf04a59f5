// Package config loads service configuration from a YAML file with
// environment variable overrides. Every field has a working default so the
// binaries run with no config file at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/loantwindb/loantwin-go/llm"
	"github.com/loantwindb/loantwin-go/loansaf"
	"github.com/loantwindb/loantwin-go/logging"
)

// Config is the root configuration for loantwin binaries.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Store   StoreConfig       `yaml:"store"`
	Health  HealthConfig      `yaml:"health"`
	Logging logging.Config    `yaml:"logging"`
	LLM     llm.Config        `yaml:"llm"`
	OCR     loansaf.OCRConfig `yaml:"ocr"`
}

// ServerConfig configures the REST API.
type ServerConfig struct {
	Port int `yaml:"port"`
	// UploadDir receives uploaded documents. It doubles as the first
	// fallback directory when stored paths go stale.
	UploadDir string `yaml:"upload_dir"`
	// MaxUploadMB caps document upload size.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// StoreConfig configures the sqlite store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HealthConfig configures the health/metrics endpoint.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			UploadDir:   "data/uploads",
			MaxUploadMB: 50,
		},
		Store:  StoreConfig{Path: "data/loantwin.db"},
		Health: HealthConfig{Port: 9091},
		Logging: logging.Config{
			Style: logging.StyleTerminal,
			Level: "info",
		},
	}
}

// Load reads the config file at path and applies environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Run on defaults.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "data/uploads"
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/loantwin.db"
	}
	if cfg.Health.Port <= 0 {
		cfg.Health.Port = 9091
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file values. Deployment
// environments set secrets and ports here rather than in the checked-in
// config file.
func (c *Config) applyEnv() {
	c.Server.Port = envInt("PORT", c.Server.Port)
	c.Server.UploadDir = envString("UPLOAD_DIR", c.Server.UploadDir)
	c.Store.Path = envString("DB_PATH", c.Store.Path)
	c.Health.Port = envInt("HEALTH_PORT", c.Health.Port)

	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
	if style := os.Getenv("LOG_STYLE"); style != "" {
		c.Logging.Style = logging.Style(style)
	}

	c.LLM.Provider = envString("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = envString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = envString("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = envString("LLM_BASE_URL", c.LLM.BaseURL)

	c.OCR.TesseractBinary = envString("TESSERACT_BINARY", c.OCR.TesseractBinary)
	c.OCR.RenderBinary = envString("PDF_RENDER_BINARY", c.OCR.RenderBinary)
	c.OCR.TessdataDir = envString("TESSDATA_PREFIX", c.OCR.TessdataDir)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
