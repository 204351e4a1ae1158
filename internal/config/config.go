// Package config resolves runtime settings from flags, the environment, a
// .env file and the user config file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"uniasset/pkg/gateway"
)

const (
	appName       = "UniAsset"
	defaultDBName = "operations.db"
	configFile    = "config.json"
)

// Environment variables.
const (
	EnvConfigDir = "UNIASSET_CONFIG_DIR"
	EnvDataDir   = "UNIASSET_DATA_DIR"
	EnvDBPath    = "UNIASSET_DB_PATH"
	EnvProvider  = "UNIASSET_AI_PROVIDER"
	EnvModel     = "UNIASSET_AI_MODEL"
	EnvBaseURL   = "UNIASSET_AI_BASE_URL"
	EnvAPIKey    = "API_KEY"
)

var providerKeyEnv = map[string]string{
	gateway.ProviderGemini:    "GEMINI_API_KEY",
	gateway.ProviderOpenAI:    "OPENAI_API_KEY",
	gateway.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// UserConfig is the persisted, non-secret part of the configuration.
type UserConfig struct {
	DBName     string `json:"db_name"`
	DataDir    string `json:"data_dir,omitempty"`
	AIProvider string `json:"ai_provider,omitempty"`
	AIModel    string `json:"ai_model,omitempty"`
	AIBaseURL  string `json:"ai_base_url,omitempty"`
}

// AI holds the resolved gateway settings.
type AI struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// GatewayConfig converts the settings for gateway.New.
func (a AI) GatewayConfig() gateway.Config {
	return gateway.Config{Provider: a.Provider, Model: a.Model, BaseURL: a.BaseURL, APIKey: a.APIKey}
}

var runtimeDataDir string
var runtimePort = 8000

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// SetRuntimeDataDir pins the data directory, taking precedence over the
// environment and the user config. Used by the -data-dir flag.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func appConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if IsMacOS() {
		return filepath.Join(home, "Library", "Application Support", appName), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = home
		}
		return filepath.Join(appData, appName), nil
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "uniasset"), nil
	}
	return filepath.Join(home, ".config", "uniasset"), nil
}

// ConfigPath returns the user config file location.
func ConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadUserConfig reads the user config, falling back to defaults when the
// file is missing or unreadable.
func LoadUserConfig() UserConfig {
	cfg := UserConfig{DBName: defaultDBName}
	path, err := ConfigPath()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return UserConfig{DBName: defaultDBName}
	}
	if strings.TrimSpace(cfg.DBName) == "" {
		cfg.DBName = defaultDBName
	}
	return cfg
}

// SaveUserConfig writes cfg to the user config file.
func SaveUserConfig(cfg UserConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetDataDir resolves and creates the data directory: runtime flag, then
// UNIASSET_DATA_DIR, then the user config, then the OS config dir.
func GetDataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(EnvDataDir))
	}
	if dir == "" {
		dir = LoadUserConfig().DataDir
	}
	if dir == "" {
		def, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = def
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDBPath returns the operation-log database path.
func GetDBPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvDBPath)); p != "" {
		return p, nil
	}
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LoadUserConfig().DBName), nil
}

// ResolveAI merges the user config with the environment. The environment
// wins; API_KEY is preferred over the provider specific variable.
func ResolveAI(user UserConfig) AI {
	ai := AI{
		Provider: firstNonEmpty(os.Getenv(EnvProvider), user.AIProvider),
		Model:    firstNonEmpty(os.Getenv(EnvModel), user.AIModel),
		BaseURL:  firstNonEmpty(os.Getenv(EnvBaseURL), user.AIBaseURL),
	}
	ai.Provider = gateway.NormalizeProvider(ai.Provider)
	ai.APIKey = firstNonEmpty(os.Getenv(EnvAPIKey), os.Getenv(providerKeyEnv[ai.Provider]))
	return ai
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
