package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"OPENAI_API_KEY", "OPENAI_KEY", "OPENAI_BASE_URL",
	"IMAGINE_MODEL", "IMAGINE_SIZE", "IMAGINE_QUALITY", "IMAGINE_STYLE",
	"IMAGINE_OUTPUT_DIR", "IMAGINE_TIMEOUT", "IMAGINE_PARALLEL", "IMAGINE_STRICT",
	"ALLOW_SELF_SIGNED_CERTS", "IMAGINE_LOG_LEVEL", "IMAGINE_LOG_FILE", "IMAGINE_HISTORY_DB",
}

// unsetConfigEnv removes every variable LoadConfig reads and restores them
// when the test ends.
func unsetConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadConfig_Defaults(t *testing.T) {
	unsetConfigEnv(t)

	cfg, err := LoadConfig(LoadOptions{EnvFile: missingEnvFile(t)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Model != DefaultModel || cfg.Size != DefaultSize {
		t.Errorf("Model/Size = %q/%q, want %q/%q", cfg.Model, cfg.Size, DefaultModel, DefaultSize)
	}
	if cfg.OutputDir != "." {
		t.Errorf("OutputDir = %q, want .", cfg.OutputDir)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
	if cfg.MaxConcurrent != 0 || cfg.Strict {
		t.Errorf("expected unbounded isolation mode, got parallel=%d strict=%v", cfg.MaxConcurrent, cfg.Strict)
	}
}

func TestLoadConfig_MissingKeyIsNotALoadError(t *testing.T) {
	unsetConfigEnv(t)

	cfg, err := LoadConfig(LoadOptions{EnvFile: missingEnvFile(t)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing key")
	}
	if code := GetErrorCode(err); code != ErrCodeMissingAuth {
		t.Errorf("error code = %q, want %q", code, ErrCodeMissingAuth)
	}
}

func TestLoadConfig_LegacyKeyAlias(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("OPENAI_KEY", "sk-legacy")

	cfg, err := LoadConfig(LoadOptions{EnvFile: missingEnvFile(t)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.APIKey != "sk-legacy" {
		t.Errorf("APIKey = %q, want sk-legacy", cfg.APIKey)
	}

	t.Setenv("OPENAI_API_KEY", "sk-primary")
	cfg, _ = LoadConfig(LoadOptions{EnvFile: missingEnvFile(t)})
	if cfg.APIKey != "sk-primary" {
		t.Errorf("APIKey = %q, want sk-primary to take precedence", cfg.APIKey)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	unsetConfigEnv(t)

	envPath := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_API_KEY=sk-from-file\nIMAGINE_MODEL=dall-e-2\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(LoadOptions{EnvFile: envPath})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.APIKey != "sk-from-file" {
		t.Errorf("APIKey = %q, want sk-from-file", cfg.APIKey)
	}
	if cfg.Model != "dall-e-2" {
		t.Errorf("Model = %q, want dall-e-2", cfg.Model)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	unsetConfigEnv(t)

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "imagine.yaml")
	yamlContent := `
model: from-yaml
size: 512x512
output_dir: /tmp/yaml-out
timeout: 45s
max_concurrent: 3
strict: true
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IMAGINE_MODEL", "from-env")
	t.Setenv("IMAGINE_PARALLEL", "8")

	cfg, err := LoadConfig(LoadOptions{ConfigFile: yamlPath, EnvFile: missingEnvFile(t)})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, env should override yaml", cfg.Model)
	}
	if cfg.Size != "512x512" {
		t.Errorf("Size = %q, want yaml value", cfg.Size)
	}
	if cfg.OutputDir != "/tmp/yaml-out" {
		t.Errorf("OutputDir = %q, want yaml value", cfg.OutputDir)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, env should override yaml", cfg.MaxConcurrent)
	}
	if !cfg.Strict {
		t.Error("Strict should come from yaml")
	}
}

func TestLoadConfig_BadConfigFile(t *testing.T) {
	unsetConfigEnv(t)

	tests := []struct {
		name    string
		content string
		write   bool
	}{
		{"missing file", "", false},
		{"malformed yaml", "model: [unterminated", true},
		{"bad timeout", "timeout: soon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "imagine.yaml")
			if tt.write {
				if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			_, err := LoadConfig(LoadOptions{ConfigFile: path, EnvFile: missingEnvFile(t)})
			if code := GetErrorCode(err); code != ErrCodeConfigFile {
				t.Errorf("error code = %q, want %q (err=%v)", code, ErrCodeConfigFile, err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"valid", func(*Config) {}, ""},
		{"blank key", func(c *Config) { c.APIKey = "   " }, ErrCodeMissingAuth},
		{"no base url", func(c *Config) { c.BaseURL = "" }, ErrCodeMissingConfig},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://example.com" }, ErrCodeInvalidValue},
		{"bad size", func(c *Config) { c.Size = "large" }, ErrCodeInvalidValue},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrCodeInvalidValue},
		{"negative parallel", func(c *Config) { c.MaxConcurrent = -1 }, ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if got := GetErrorCode(cfg.Validate()); got != tt.wantCode {
				t.Errorf("Validate() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(DefaultConfig())
	if client.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (calls are bounded by context)", client.Timeout)
	}
	if client.Transport != nil {
		t.Error("expected default transport without self-signed certs")
	}

	cfg := DefaultConfig()
	cfg.AllowSelfSignedCerts = true
	client = GetHTTPClient(cfg)
	if client.Transport == nil {
		t.Fatal("expected custom transport when self-signed certs are allowed")
	}
}
