package core

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for a zero-config run against the OpenAI Images API.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "dall-e-3"
	DefaultSize      = "1024x1024"
	DefaultOutputDir = "."
	DefaultEnvFile   = ".env"
	DefaultLogLevel  = "info"
)

// APIKeyEnv is the environment variable holding the bearer token.
// OPENAI_KEY is accepted as a legacy alias.
const APIKeyEnv = "OPENAI_API_KEY"

var sizePattern = regexp.MustCompile(`^[0-9]+x[0-9]+$`)

// Config holds every setting for one invocation. It is built once at startup
// and shared read-only with every prompt task.
type Config struct {
	// APIKey is the bearer token for the generation endpoint (required)
	APIKey string

	// Generation endpoint and request shape
	BaseURL string
	Model   string
	Size    string
	Quality string // optional, omitted from the request when empty
	Style   string // optional, omitted from the request when empty

	// OutputDir is where generated images are written
	OutputDir string

	// Timeout bounds each network call (0 = no timeout)
	Timeout time.Duration

	// MaxConcurrent caps how many prompts run at once (0 = one goroutine per prompt)
	MaxConcurrent int

	// Strict aborts the remaining prompts on the first failure and makes
	// any failure produce a non-zero exit code
	Strict bool

	AllowSelfSignedCerts bool

	// Logging
	LogLevel string
	LogFile  string

	// HistoryPath is the SQLite ledger of generation outcomes ("" = disabled)
	HistoryPath string
}

// FileConfig is the YAML shape accepted by --config. Empty fields keep the
// default; the API key is intentionally not part of the file.
type FileConfig struct {
	BaseURL              string `yaml:"base_url"`
	Model                string `yaml:"model"`
	Size                 string `yaml:"size"`
	Quality              string `yaml:"quality"`
	Style                string `yaml:"style"`
	OutputDir            string `yaml:"output_dir"`
	Timeout              string `yaml:"timeout"`
	MaxConcurrent        int    `yaml:"max_concurrent"`
	Strict               bool   `yaml:"strict"`
	AllowSelfSignedCerts bool   `yaml:"allow_self_signed_certs"`
	LogLevel             string `yaml:"log_level"`
	LogFile              string `yaml:"log_file"`
	History              string `yaml:"history"`
}

// LoadOptions controls where LoadConfig looks for settings.
type LoadOptions struct {
	// ConfigFile is an optional YAML file applied on top of the defaults
	ConfigFile string

	// EnvFile is loaded into the environment if it exists (default ".env").
	// Variables already set in the environment win.
	EnvFile string
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Model:     DefaultModel,
		Size:      DefaultSize,
		OutputDir: DefaultOutputDir,
		LogLevel:  DefaultLogLevel,
	}
}

// LoadConfig builds a Config from defaults, the optional YAML file and the
// environment, in that order of precedence. It does not check the credential;
// call Validate once command-line overrides have been applied.
func LoadConfig(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if opts.ConfigFile != "" {
		if err := cfg.applyFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// loadEnvFile loads KEY=value pairs from path, ignoring a missing file.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ErrEnvFile(path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return ErrEnvFile(path, err)
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrConfigFile(path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return ErrConfigFile(path, err)
	}

	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.Model, fc.Model)
	setString(&c.Size, fc.Size)
	setString(&c.Quality, fc.Quality)
	setString(&c.Style, fc.Style)
	setString(&c.OutputDir, fc.OutputDir)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, fc.LogFile)
	setString(&c.HistoryPath, fc.History)

	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return ErrConfigFile(path, fmt.Errorf("timeout: %w", err))
		}
		c.Timeout = d
	}
	if fc.MaxConcurrent != 0 {
		c.MaxConcurrent = fc.MaxConcurrent
	}
	c.Strict = c.Strict || fc.Strict
	c.AllowSelfSignedCerts = c.AllowSelfSignedCerts || fc.AllowSelfSignedCerts

	return nil
}

func (c *Config) applyEnv() {
	c.APIKey = FirstEnv(APIKeyEnv, "OPENAI_KEY")
	c.BaseURL = GetEnvOrDefault("OPENAI_BASE_URL", c.BaseURL)
	c.Model = GetEnvOrDefault("IMAGINE_MODEL", c.Model)
	c.Size = GetEnvOrDefault("IMAGINE_SIZE", c.Size)
	c.Quality = GetEnvOrDefault("IMAGINE_QUALITY", c.Quality)
	c.Style = GetEnvOrDefault("IMAGINE_STYLE", c.Style)
	c.OutputDir = GetEnvOrDefault("IMAGINE_OUTPUT_DIR", c.OutputDir)
	c.Timeout = ParseDurationEnv("IMAGINE_TIMEOUT", c.Timeout)
	c.MaxConcurrent = ParseIntEnv("IMAGINE_PARALLEL", c.MaxConcurrent)
	c.Strict = ParseBoolEnv("IMAGINE_STRICT", c.Strict)
	c.AllowSelfSignedCerts = ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", c.AllowSelfSignedCerts)
	c.LogLevel = GetEnvOrDefault("IMAGINE_LOG_LEVEL", c.LogLevel)
	c.LogFile = GetEnvOrDefault("IMAGINE_LOG_FILE", c.LogFile)
	c.HistoryPath = GetEnvOrDefault("IMAGINE_HISTORY_DB", c.HistoryPath)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Validate checks everything a generation run needs. It returns a *ConfigError
// so the caller can exit before any prompt is scheduled.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAuth(APIKeyEnv)
	}
	if c.BaseURL == "" {
		return ErrMissingConfig("OPENAI_BASE_URL")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return ErrInvalidValue("base URL", c.BaseURL, "must start with http:// or https://")
	}
	if c.Model == "" {
		return ErrMissingConfig("IMAGINE_MODEL")
	}
	if !sizePattern.MatchString(c.Size) {
		return ErrInvalidValue("size", c.Size, "expected WIDTHxHEIGHT, e.g. 1024x1024")
	}
	if c.OutputDir == "" {
		return ErrMissingConfig("IMAGINE_OUTPUT_DIR")
	}
	if c.Timeout < 0 {
		return ErrInvalidValue("timeout", c.Timeout.String(), "must not be negative")
	}
	if c.MaxConcurrent < 0 {
		return ErrInvalidValue("parallel", fmt.Sprint(c.MaxConcurrent), "must not be negative")
	}
	return nil
}

// GetHTTPClient returns the HTTP client shared by every task. It carries no
// overall timeout: each call is bounded by its context instead, so a slow but
// progressing download is not cut off mid-stream.
func GetHTTPClient(cfg *Config) *http.Client {
	client := &http.Client{}

	if cfg != nil && cfg.AllowSelfSignedCerts {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		client.Transport = transport
	}

	return client
}
