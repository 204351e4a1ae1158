package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"uniasset/pkg/gateway"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	for _, k := range []string{EnvDataDir, EnvDBPath, EnvProvider, EnvModel, EnvBaseURL, EnvAPIKey, "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(k, "")
	}
	SetRuntimeDataDir("")
	t.Cleanup(func() { SetRuntimeDataDir("") })
	return dir
}

func TestRuntimePort(t *testing.T) {
	orig := GetRuntimePort()
	defer SetRuntimePort(orig)

	SetRuntimePort(0)
	if got := GetRuntimePort(); got != orig {
		t.Fatalf("expected port to remain %d, got %d", orig, got)
	}
	SetRuntimePort(9090)
	if got := GetRuntimePort(); got != 9090 {
		t.Fatalf("expected port 9090, got %d", got)
	}
}

func TestGetDataDirPrecedence(t *testing.T) {
	cfgDir := isolate(t)

	dir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir: %v", err)
	}
	if dir != cfgDir {
		t.Fatalf("default dir = %q, want %q", dir, cfgDir)
	}

	fromFile := filepath.Join(t.TempDir(), "file")
	if err := SaveUserConfig(UserConfig{DBName: "x.db", DataDir: fromFile}); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}
	if dir, _ := GetDataDir(); dir != fromFile {
		t.Fatalf("config dir = %q", dir)
	}

	fromEnv := filepath.Join(t.TempDir(), "env")
	t.Setenv(EnvDataDir, fromEnv)
	if dir, _ := GetDataDir(); dir != fromEnv {
		t.Fatalf("env dir = %q", dir)
	}
	if _, err := os.Stat(fromEnv); err != nil {
		t.Fatalf("env dir not created: %v", err)
	}

	fromFlag := t.TempDir()
	SetRuntimeDataDir(fromFlag)
	if dir, _ := GetDataDir(); dir != fromFlag {
		t.Fatalf("runtime dir = %q", dir)
	}
}

func TestGetDBPath(t *testing.T) {
	cfgDir := isolate(t)
	got, err := GetDBPath()
	if err != nil {
		t.Fatalf("GetDBPath: %v", err)
	}
	if got != filepath.Join(cfgDir, defaultDBName) {
		t.Fatalf("db path = %q", got)
	}

	path := filepath.Join(t.TempDir(), "ops.sqlite")
	t.Setenv(EnvDBPath, path)
	if got, _ := GetDBPath(); got != path {
		t.Fatalf("env db path = %q", got)
	}
}

func TestLoadUserConfigDefaultsAndCorruptFile(t *testing.T) {
	cfgDir := isolate(t)
	if cfg := LoadUserConfig(); cfg.DBName != defaultDBName || cfg.AIProvider != "" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, configFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if cfg := LoadUserConfig(); cfg.DBName != defaultDBName {
		t.Fatalf("corrupt file = %+v", cfg)
	}
	if err := SaveUserConfig(UserConfig{AIProvider: "openai", AIModel: "gpt-4.1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg := LoadUserConfig()
	if cfg.DBName != defaultDBName || cfg.AIProvider != "openai" || cfg.AIModel != "gpt-4.1" {
		t.Fatalf("round trip = %+v", cfg)
	}
}

func TestResolveAI(t *testing.T) {
	isolate(t)

	ai := ResolveAI(UserConfig{})
	if ai.Provider != gateway.ProviderGemini || ai.APIKey != "" {
		t.Fatalf("defaults = %+v", ai)
	}

	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	ai = ResolveAI(UserConfig{AIProvider: "anthropic", AIModel: "claude-x"})
	if ai.Provider != gateway.ProviderAnthropic || ai.APIKey != "ant-key" || ai.Model != "claude-x" {
		t.Fatalf("user config = %+v", ai)
	}

	t.Setenv(EnvProvider, "gemini")
	t.Setenv(EnvAPIKey, "shared")
	t.Setenv(EnvBaseURL, "https://proxy.example")
	ai = ResolveAI(UserConfig{AIProvider: "anthropic"})
	if ai.Provider != gateway.ProviderGemini || ai.APIKey != "shared" || ai.BaseURL != "https://proxy.example" {
		t.Fatalf("env override = %+v", ai)
	}
	gc := ai.GatewayConfig()
	if gc.APIKey != "shared" || gc.Provider != gateway.ProviderGemini {
		t.Fatalf("gateway config = %+v", gc)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("UNIASSET_AI_MODEL=from-dotenv\nAPI_KEY=preset\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	os.Unsetenv(EnvModel)
	t.Setenv(EnvAPIKey, "already-set")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	defer os.Unsetenv(EnvModel)
	if got := os.Getenv(EnvModel); got != "from-dotenv" {
		t.Fatalf("model = %q", got)
	}
	if got := os.Getenv(EnvAPIKey); got != "already-set" {
		t.Fatalf("existing variable overridden: %q", got)
	}
}

func TestIsMacOSWindows(t *testing.T) {
	if IsMacOS() != (runtime.GOOS == "darwin") {
		t.Fatalf("IsMacOS mismatch")
	}
	if IsWindows() != (runtime.GOOS == "windows") {
		t.Fatalf("IsWindows mismatch")
	}
}
