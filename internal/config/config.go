// Package config provides configuration management for the LaTeX editor application.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "latex-editor-config.json"
	// EnvAPIKey is the environment variable name for the primary API key
	EnvAPIKey = "LATEX_EDITOR_API_KEY"
	// EnvAPIKeyPrefix is the prefix of the numbered backup key variables
	// (LATEX_EDITOR_API_KEY1 .. LATEX_EDITOR_API_KEY39)
	EnvAPIKeyPrefix = "LATEX_EDITOR_API_KEY"
	// EnvBaseURL is the environment variable name for the API base URL
	EnvBaseURL = "LATEX_EDITOR_BASE_URL"
	// EnvModel is the environment variable name for the model name
	EnvModel = "LATEX_EDITOR_MODEL"
	// MaxBackupKeys is the highest numbered backup key variable scanned
	MaxBackupKeys = 39
	// DefaultBaseURL is the default OpenAI-compatible API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default model to use for intent classification
	DefaultModel = "gpt-4o-mini"
	// DefaultRequestTimeout is the default per-request timeout in seconds
	DefaultRequestTimeout = 30
	// DefaultKeyCooldown is the default rate-limit cooldown per key in seconds
	DefaultKeyCooldown = 60
	// DefaultFallbackConfidence is the minimum confidence the keyword
	// fallback parser must reach for its result to be used
	DefaultFallbackConfidence = 0.4
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "latex-editor", DefaultConfigFileName)
	}

	logger.Info("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		APIKeys:            nil,
		BaseURL:            DefaultBaseURL,
		Model:              DefaultModel,
		RequestTimeout:     DefaultRequestTimeout,
		KeyCooldown:        DefaultKeyCooldown,
		FallbackConfidence: DefaultFallbackConfidence,
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables take precedence for keys not present in the file.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			// Invalid JSON, use defaults
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Int("apiKeys", len(config.APIKeys)),
				logger.String("baseURL", config.BaseURL),
				logger.String("model", config.Model))
			m.config = config
		}
	}

	// Apply defaults for empty fields
	if m.config.BaseURL == "" {
		m.config.BaseURL = DefaultBaseURL
	}
	if m.config.Model == "" {
		m.config.Model = DefaultModel
	}
	if m.config.RequestTimeout <= 0 {
		m.config.RequestTimeout = DefaultRequestTimeout
	}
	if m.config.KeyCooldown <= 0 {
		m.config.KeyCooldown = DefaultKeyCooldown
	}
	if m.config.FallbackConfidence <= 0 {
		m.config.FallbackConfidence = DefaultFallbackConfidence
	}

	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetAPIKeys returns the ordered list of classifier API keys.
// Config file values come first; the environment is then scanned for the
// primary key and the numbered backups (KEY, KEY1 .. KEY39), preserving
// numeric order and skipping duplicates and empty values.
func (m *ConfigManager) GetAPIKeys() []string {
	seen := make(map[string]bool)
	var keys []string

	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}

	if m.config != nil {
		for _, k := range m.config.APIKeys {
			add(k)
		}
	}

	add(os.Getenv(EnvAPIKey))
	for i := 1; i <= MaxBackupKeys; i++ {
		add(os.Getenv(fmt.Sprintf("%s%d", EnvAPIKeyPrefix, i)))
	}

	return keys
}

// SetAPIKeys replaces the configured key list and saves the configuration.
func (m *ConfigManager) SetAPIKeys(keys []string) error {
	logger.Info("setting API keys", logger.Int("count", len(keys)))
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.APIKeys = keys
	return m.Save()
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetModel returns the model to use for intent classification.
func (m *ConfigManager) GetModel() string {
	if m.config != nil && m.config.Model != "" {
		return m.config.Model
	}
	if env := os.Getenv(EnvModel); env != "" {
		return env
	}
	return DefaultModel
}

// GetBaseURL returns the API base URL.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetBaseURL() string {
	if m.config != nil && m.config.BaseURL != "" && m.config.BaseURL != DefaultBaseURL {
		return m.config.BaseURL
	}

	if env := os.Getenv(EnvBaseURL); env != "" {
		return env
	}

	return DefaultBaseURL
}

// GetRequestTimeout returns the per-request classifier timeout.
func (m *ConfigManager) GetRequestTimeout() time.Duration {
	if m.config != nil && m.config.RequestTimeout > 0 {
		return time.Duration(m.config.RequestTimeout) * time.Second
	}
	return DefaultRequestTimeout * time.Second
}

// GetKeyCooldown returns the rate-limit cooldown applied to a key slot.
func (m *ConfigManager) GetKeyCooldown() time.Duration {
	if m.config != nil && m.config.KeyCooldown > 0 {
		return time.Duration(m.config.KeyCooldown) * time.Second
	}
	return DefaultKeyCooldown * time.Second
}

// GetFallbackConfidence returns the minimum confidence required for the
// keyword fallback parser's result to be accepted.
func (m *ConfigManager) GetFallbackConfidence() float64 {
	if m.config != nil && m.config.FallbackConfidence > 0 {
		return m.config.FallbackConfidence
	}
	return DefaultFallbackConfidence
}
