package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// FileName is looked up in the addon root when no config file is given
	FileName = "odoocheck.yaml"
	// EnvPrefix prefixes environment overrides
	EnvPrefix         = "ODOOCHECK_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// listKeys are split on commas when set from the environment
var listKeys = map[string]bool{
	"scan.python_dirs":      true,
	"scan.xml_dirs":         true,
	"audit.external_models": true,
}

// Load loads configuration from an optional YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ODOOCHECK_AUDIT_MAX_DEPENDS_DEPTH, ODOOCHECK_LOG_LEVEL, etc.)
//  2. YAML config file
//  3. Defaults
//
// An empty configPath skips the file. A configPath that does not exist is an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")
	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// ODOOCHECK_AUDIT_MAX_DEPENDS_DEPTH -> audit.max_depends_depth
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key string, value string) (string, interface{}) {
		lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower, value
		}
		name := parts[0] + "." + parts[1]
		if listKeys[name] {
			var items []string
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			return name, items
		}
		return name, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadForAddon loads configPath, or odoocheck.yaml from the addon root when configPath is empty
func LoadForAddon(addonRoot, configPath string) (*Config, error) {
	if configPath == "" && addonRoot != "" {
		candidate := filepath.Join(addonRoot, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			configPath = candidate
		}
	}
	return Load(configPath)
}

func readConfigFile(configPath string) ([]byte, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", configPath)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
