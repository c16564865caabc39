package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"

	PresetDefault = "default"
	PresetCompact = "compact"

	defaultAzureAPIVersion = "2024-02-15"
	defaultTemperature     = 0.7
	defaultOverlapWords    = 30
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

// CompletionConfig configures the chat-completion service. On Azure, BaseURL
// is the resource endpoint and Model the deployment name.
type CompletionConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	APIVersion  string  `yaml:"api_version"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// ChunkerConfig sizes the ingest windows. OverlapWords is a pointer so an
// explicit 0 is kept.
type ChunkerConfig struct {
	WindowWords  int  `yaml:"window_words"`
	OverlapWords *int `yaml:"overlap_words"`
}

// ContextConfig bounds the document context of a chat turn. Zero MaxChars
// or TopK take the value of the named preset.
type ContextConfig struct {
	Preset   string `yaml:"preset"`
	MaxChars int    `yaml:"max_chars"`
	TopK     int    `yaml:"top_k"`
}

type StoreConfig struct {
	ConsumeAfterUse *bool `yaml:"consume_after_use"`
}

// OCRConfig enables OCR of embedded document images when TesseractPath is
// set.
type OCRConfig struct {
	TesseractPath string `yaml:"tesseract_path"`
	Lang          string `yaml:"lang"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Context    ContextConfig    `yaml:"context"`
	Store      StoreConfig      `yaml:"store"`
	OCR        OCRConfig        `yaml:"ocr"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from path, fills in defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the deployment's environment variables.
func applyEnv(cfg *AppConfig) {
	azureKey := os.Getenv("AZURE_OPENAI_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = ProviderAzure
		if azureKey == "" && openaiKey != "" {
			cfg.Completion.Provider = ProviderOpenAI
		}
	}

	switch cfg.Completion.Provider {
	case ProviderAzure:
		setIfPresent(&cfg.Completion.APIKey, azureKey)
		setIfPresent(&cfg.Completion.BaseURL, os.Getenv("AZURE_OPENAI_ENDPOINT"))
		setIfPresent(&cfg.Completion.APIVersion, os.Getenv("AZURE_OPENAI_API_VERSION"))
		setIfPresent(&cfg.Completion.Model, os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"))
	case ProviderOpenAI:
		setIfPresent(&cfg.Completion.APIKey, openaiKey)
	}
	setIfPresent(&cfg.Server.Addr, os.Getenv("RAG_ADDR"))
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = "http://localhost:3000"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Completion.Provider == ProviderAzure && cfg.Completion.APIVersion == "" {
		cfg.Completion.APIVersion = defaultAzureAPIVersion
	}
	if cfg.Completion.Temperature == nil {
		temperature := defaultTemperature
		cfg.Completion.Temperature = &temperature
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 500
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 120
	}
	if cfg.Chunker.WindowWords == 0 {
		cfg.Chunker.WindowWords = 150
	}
	if cfg.Chunker.OverlapWords == nil {
		overlap := defaultOverlapWords
		cfg.Chunker.OverlapWords = &overlap
	}
	if cfg.Context.Preset == "" {
		cfg.Context.Preset = PresetDefault
	}
	if cfg.Store.ConsumeAfterUse == nil {
		consume := true
		cfg.Store.ConsumeAfterUse = &consume
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate rejects settings the service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.MaxUploadMB < 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be positive"))
	}
	switch c.Completion.Provider {
	case ProviderAzure, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("completion.provider: unknown provider %q", c.Completion.Provider))
	}
	if c.Completion.MaxTokens < 0 || c.Completion.TimeoutSecs < 0 {
		errs = append(errs, errors.New("completion.max_tokens and completion.timeout_secs must be positive"))
	}
	if t := c.Temperature(); t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("completion.temperature: %v is outside 0..2", t))
	}
	if c.Chunker.WindowWords < 0 || c.OverlapWords() < 0 {
		errs = append(errs, errors.New("chunker values must not be negative"))
	}
	switch c.Context.Preset {
	case PresetDefault, PresetCompact:
	default:
		errs = append(errs, fmt.Errorf("context.preset: unknown preset %q", c.Context.Preset))
	}
	if c.Context.MaxChars < 0 || c.Context.TopK < 0 {
		errs = append(errs, errors.New("context.max_chars and context.top_k must be positive"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// CompletionReady reports whether enough is configured to build a
// completion client. Without it the service runs but cannot chat.
func (c *AppConfig) CompletionReady() bool {
	cc := c.Completion
	if cc.APIKey == "" || cc.Model == "" {
		return false
	}
	return cc.Provider != ProviderAzure || cc.BaseURL != ""
}

func (c *AppConfig) CompletionTimeout() time.Duration {
	return time.Duration(c.Completion.TimeoutSecs) * time.Second
}

func (c *AppConfig) Temperature() float64 {
	if c.Completion.Temperature == nil {
		return defaultTemperature
	}
	return *c.Completion.Temperature
}

func (c *AppConfig) OverlapWords() int {
	if c.Chunker.OverlapWords == nil {
		return defaultOverlapWords
	}
	return *c.Chunker.OverlapWords
}

func (c *AppConfig) ConsumeAfterUse() bool {
	return c.Store.ConsumeAfterUse == nil || *c.Store.ConsumeAfterUse
}

// MaxUploadBytes is the multipart body limit of one upload request.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
