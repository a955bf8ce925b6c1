package conf

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"
)

type Config struct {
	Version string       `json:"-"`
	Server  ServerConfig `json:"server"`
	Agent   AgentConfig  `json:"agent"`
}

type ServerConfig struct {
	DataDir string `json:"data_dir"`
}

// AgentConfig controls the AI agent subsystem. Enabled gates every agent
// operation; RequireApproval=false degrades to auto-approving mutating
// tool calls (still routed through the audit log).
type AgentConfig struct {
	Enabled         bool   `json:"enabled"`
	RequireApproval bool   `json:"require_approval"`
	Model           string `json:"model"`
	DefaultMaxSteps int    `json:"default_max_steps"`
}

var serverSchema = z.Struct(z.Shape{
	"DataDir": z.String().Default("~/.leadwire").Transform(expandPathTransform),
})

var agentSchema = z.Struct(z.Shape{
	"Enabled":         z.Bool().Default(true),
	"RequireApproval": z.Bool().Default(true),
	"Model":           z.String().Default("gpt-4o-mini").Trim(),
	"DefaultMaxSteps": z.Int().Default(10).GTE(1).LTE(100),
})

var ConfigSchema = z.Struct(z.Shape{
	"server": serverSchema,
	"agent":  agentSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		defaults := &Config{}
		if err := ConfigSchema.Parse(map[string]any{}, defaults); err != nil {
			log.Fatal("[Leadwire] Failed to parse config", err)
		}
		defaults.Version = "0.0.1"

		dataDir, err := expandPath(defaults.Server.DataDir)
		if err != nil {
			log.Fatal("[Leadwire] Failed to expand config data dir", err)
		}

		configPath := filepath.Join(filepath.Clean(dataDir), "leadwire.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				config = defaults
				return config
			}
			log.Fatal("[Leadwire] Failed to read config file", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			config = defaults
			return config
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Fatal("[Leadwire] Failed to parse config file", err)
		}
		parsed := &Config{}
		if err := ConfigSchema.Parse(payload, parsed); err != nil {
			log.Fatal("[Leadwire] Failed to parse config", err)
		}
		parsed.Version = defaults.Version
		config = parsed
	}

	return config
}

func expandPathTransform(ptr *string, c z.Ctx) error {
	expanded, err := expandPath(*ptr)
	*ptr = expanded
	return err
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
