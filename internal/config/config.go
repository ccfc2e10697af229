// Package config loads server settings from defaults, an optional TOML file
// and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	HTTPAddr        string        `toml:"http_addr"`
	JWTSecret       string        `toml:"jwt_secret_key"`
	AccessTokenTTL  time.Duration `toml:"access_token_ttl"`
	GeminiAPIKey    string        `toml:"gemini_api_key"`
	GeminiModel     string        `toml:"gemini_model"`
	ProjectID       string        `toml:"project_id"`
	VertexAIRegion  string        `toml:"vertex_ai_region"`
	UploadDir       string        `toml:"upload_dir"`
	MaxUploadBytes  int64         `toml:"max_upload_bytes"`
	ExtractTimeout  time.Duration `toml:"extract_timeout"`
	LLMTimeout      time.Duration `toml:"llm_timeout"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	AllowAllOrigins bool          `toml:"allow_all_origins"`
	LogFile         string        `toml:"log_file"`
}

func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.AccessTokenTTL = 90 * time.Minute
	c.GeminiModel = "gemini-2.5-flash"
	c.VertexAIRegion = "us-central1"
	c.UploadDir = os.TempDir()
	c.MaxUploadBytes = 32 << 20
	c.ExtractTimeout = 60 * time.Second
	c.LLMTimeout = 120 * time.Second
	c.AllowedOrigins = []string{}
}

// Load applies defaults, then the TOML file at path (if any), then the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides copies set environment variables onto c.
func (c *Config) ApplyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &c.HTTPAddr)
	str("JWT_SECRET_KEY", &c.JWTSecret)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("PROJECT_ID", &c.ProjectID)
	str("VERTEX_AI_REGION", &c.VertexAIRegion)
	str("UPLOAD_DIR", &c.UploadDir)
	str("LOG_FILE", &c.LogFile)

	if v, ok := lookup("ACCESS_TOKEN_EXPIRE_MINUTES"); ok && v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES is not an integer: %w", err)
		}
		c.AccessTokenTTL = time.Duration(minutes) * time.Minute
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = c.AllowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, origin)
			}
		}
	}
	if v, ok := lookup("ALLOW_ALL_ORIGINS"); ok && v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ALLOW_ALL_ORIGINS is not a boolean: %w", err)
		}
		c.AllowAllOrigins = allow
	}
	return nil
}

// GeminiWarnings lists Gemini settings that will make queries fail or fall
// back to application default credentials. None of them stop the server.
func (c *Config) GeminiWarnings() []string {
	var warnings []string
	if c.ProjectID == "" {
		warnings = append(warnings, "PROJECT_ID is not set, queries will fail")
	}
	if c.VertexAIRegion == "" {
		warnings = append(warnings, "VERTEX_AI_REGION is not set, queries will fail")
	}
	if c.GeminiAPIKey == "" {
		warnings = append(warnings, "GEMINI_API_KEY is not set, using application default credentials")
	}
	return warnings
}

// Validate rejects settings the server cannot start with. Gemini settings are
// not checked here; queries fail individually instead.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("access token ttl must be positive, got %s", c.AccessTokenTTL)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must be set")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
