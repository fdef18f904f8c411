package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration. Environment variables
// override whatever the file sets.
type fileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LedgerDB string `yaml:"ledger_db"`

	MCPTransport string `yaml:"mcp_transport"` // "", "stdio"

	GenAI struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		TimeoutMS   int     `yaml:"timeout_ms"`
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"genai"`

	Pipeline struct {
		Variants      int `yaml:"variants"`
		MaxConcurrent int `yaml:"max_concurrent"`
		ThrottleMS    int `yaml:"throttle_ms"`
	} `yaml:"pipeline"`
}

func loadConfig() (*fileConfig, error) {
	cfg := &fileConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = env("PORT", or(cfg.Port, "8090"))
	cfg.LogLevel = env("LOG_LEVEL", or(cfg.LogLevel, "info"))
	cfg.LedgerDB = env("LEDGER_DB", or(cfg.LedgerDB, "db/ledger.db"))
	cfg.MCPTransport = env("MCP_TRANSPORT", cfg.MCPTransport)
	cfg.GenAI.BaseURL = env("GENAI_BASE_URL", cfg.GenAI.BaseURL)
	cfg.GenAI.APIKey = env("GENAI_API_KEY", cfg.GenAI.APIKey)
	cfg.GenAI.Model = env("GENAI_MODEL", cfg.GenAI.Model)
	cfg.Pipeline.Variants = envInt("VARIANTS", cfg.Pipeline.Variants)
	cfg.Pipeline.MaxConcurrent = envInt("MAX_CONCURRENT", cfg.Pipeline.MaxConcurrent)

	return cfg, nil
}

func (c *fileConfig) genaiTimeout() time.Duration {
	return time.Duration(c.GenAI.TimeoutMS) * time.Millisecond
}

func (c *fileConfig) throttle() time.Duration {
	return time.Duration(c.Pipeline.ThrottleMS) * time.Millisecond
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
