package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeHTTP  = "http"
	ModeStdio = "stdio"

	// Provider constants
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// Default values
	DefaultPort          = 8000
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 20 * 1024 * 1024 // 20MB
	DefaultExampleFile   = "./cerfa-11768.pdf"
	DefaultBaseURL       = "https://api.mistral.ai/v1"
	DefaultLabelModel    = "pixtral-12b-2409"
	DefaultChatModel     = "mistral-small-2506"
	DefaultInterview     = "mistral-large-latest"
	DefaultModelTimeout  = 60 * time.Second
	DefaultRenderScale   = 2.0
	DefaultRenderTimeout = 30 * time.Second
	DefaultPdftoppm      = "pdftoppm"
	DefaultAnalysisCache = 32

	envPrefix = "FORM_COPILOT"
)

// Config holds all configuration for the form copilot server
type Config struct {
	// Server configuration
	Mode        string // "http" or "stdio"
	Host        string
	Port        int
	CORSOrigins []string

	// Document configuration
	PDFDirectory string
	ExampleFile  string
	MaxFileSize  int64 // Maximum PDF file size in bytes

	// AnalysisCache is the number of page renderings kept in memory
	AnalysisCache int

	// Rendering configuration
	RenderScale   float64
	RenderTimeout time.Duration
	Pdftoppm      string

	// Model configuration
	Provider       string
	BaseURL        string
	APIKey         string
	LabelModel     string
	ChatModel      string
	InterviewModel string
	ModelTimeout   time.Duration

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:           ModeHTTP,
		Host:           DefaultHost,
		Port:           DefaultPort,
		CORSOrigins:    []string{"*"},
		PDFDirectory:   currentDir,
		ExampleFile:    DefaultExampleFile,
		MaxFileSize:    DefaultMaxFileSize,
		AnalysisCache:  DefaultAnalysisCache,
		RenderScale:    DefaultRenderScale,
		RenderTimeout:  DefaultRenderTimeout,
		Pdftoppm:       DefaultPdftoppm,
		Provider:       ProviderOpenAI,
		BaseURL:        DefaultBaseURL,
		LabelModel:     DefaultLabelModel,
		ChatModel:      DefaultChatModel,
		InterviewModel: DefaultInterview,
		ModelTimeout:   DefaultModelTimeout,
		Version:        "1.0.0",
		ServerName:     "form-copilot",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags, environment and an optional .env
// file and returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// The credential keeps the provider's conventional variable as a fallback.
	_ = viper.BindEnv("apikey", envPrefix+"_API_KEY", "MISTRAL_API_KEY")

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("cors-origins", cfg.CORSOrigins)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("example", cfg.ExampleFile)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("analysis-cache", cfg.AnalysisCache)
	viper.SetDefault("render-scale", cfg.RenderScale)
	viper.SetDefault("render-timeout", cfg.RenderTimeout)
	viper.SetDefault("pdftoppm", cfg.Pdftoppm)
	viper.SetDefault("provider", cfg.Provider)
	viper.SetDefault("baseurl", cfg.BaseURL)
	viper.SetDefault("label-model", cfg.LabelModel)
	viper.SetDefault("chat-model", cfg.ChatModel)
	viper.SetDefault("interview-model", cfg.InterviewModel)
	viper.SetDefault("model-timeout", cfg.ModelTimeout)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'http' for the REST API, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (http mode only)")
	pflag.Int("port", cfg.Port, "Server port (http mode only)")
	pflag.StringSlice("cors-origins", cfg.CORSOrigins, "Allowed CORS origins (http mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files (stdio mode tools)")
	pflag.String("example", cfg.ExampleFile, "Path of the example form served by /load-example")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("analysis-cache", cfg.AnalysisCache, "Number of rendered documents to cache (0 disables)")
	pflag.Float64("render-scale", cfg.RenderScale, "Rasterization scale factor (1.0 = 72 DPI)")
	pflag.Duration("render-timeout", cfg.RenderTimeout, "Timeout for rasterizing a page")
	pflag.String("pdftoppm", cfg.Pdftoppm, "Name or path of the poppler pdftoppm binary")
	pflag.String("provider", cfg.Provider, "Model provider: 'openai' (any compatible endpoint) or 'anthropic'")
	pflag.String("baseurl", cfg.BaseURL, "Model API base URL")
	pflag.String("label-model", cfg.LabelModel, "Vision model used to label fields")
	pflag.String("chat-model", cfg.ChatModel, "Model used by the field assistant")
	pflag.String("interview-model", cfg.InterviewModel, "Model used by the interview")
	pflag.Duration("model-timeout", cfg.ModelTimeout, "Timeout for a single model call")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "cors-origins", "dir", "example", "maxfilesize", "analysis-cache",
		"render-scale", "render-timeout", "pdftoppm", "provider", "baseurl",
		"label-model", "chat-model", "interview-model", "model-timeout", "loglevel",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nForm Copilot - label and fill PDF forms with a vision language model\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                     # REST API on 127.0.0.1:8000\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=9000          # REST API on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/to/forms   # MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORM_COPILOT_API_KEY   Model API key (falls back to MISTRAL_API_KEY)\n")
		fmt.Fprintf(os.Stderr, "  FORM_COPILOT_MODE      Server mode\n")
		fmt.Fprintf(os.Stderr, "  FORM_COPILOT_PROVIDER  Model provider\n")
		fmt.Fprintf(os.Stderr, "  FORM_COPILOT_BASEURL   Model API base URL\n")
		fmt.Fprintf(os.Stderr, "  FORM_COPILOT_LOGLEVEL  Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.CORSOrigins = viper.GetStringSlice("cors-origins")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.ExampleFile = viper.GetString("example")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.AnalysisCache = viper.GetInt("analysis-cache")
	cfg.RenderScale = viper.GetFloat64("render-scale")
	cfg.RenderTimeout = viper.GetDuration("render-timeout")
	cfg.Pdftoppm = viper.GetString("pdftoppm")
	cfg.Provider = viper.GetString("provider")
	cfg.BaseURL = viper.GetString("baseurl")
	cfg.APIKey = viper.GetString("apikey")
	cfg.LabelModel = viper.GetString("label-model")
	cfg.ChatModel = viper.GetString("chat-model")
	cfg.InterviewModel = viper.GetString("interview-model")
	cfg.ModelTimeout = viper.GetDuration("model-timeout")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeHTTP && c.Mode != ModeStdio {
		return errors.New("mode must be either 'http' or 'stdio'")
	}

	if c.Mode == ModeHTTP && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.AnalysisCache < 0 {
		return errors.New("analysis cache size cannot be negative")
	}

	if c.RenderScale <= 0 || c.RenderScale > 8 {
		return fmt.Errorf("render scale must be in (0, 8], got %v", c.RenderScale)
	}

	if c.RenderTimeout <= 0 {
		return errors.New("render timeout must be positive")
	}

	if c.ModelTimeout <= 0 {
		return errors.New("model timeout must be positive")
	}

	if c.Provider != ProviderOpenAI && c.Provider != ProviderAnthropic {
		return fmt.Errorf("invalid provider: %s (must be one of: openai, anthropic)", c.Provider)
	}

	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("model API key is required (set FORM_COPILOT_API_KEY or MISTRAL_API_KEY)")
	}

	if c.LabelModel == "" || c.ChatModel == "" || c.InterviewModel == "" {
		return errors.New("label, chat and interview models must all be set")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a representation of the configuration with the credential redacted
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Provider: %s, BaseURL: %s, "+
		"LabelModel: %s, ChatModel: %s, InterviewModel: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Provider, c.BaseURL,
		c.LabelModel, c.ChatModel, c.InterviewModel, c.LogLevel, c.MaxFileSize)
}

// IsHTTPMode returns true if the REST API should be served
func (c *Config) IsHTTPMode() bool {
	return c.Mode == ModeHTTP
}

// IsStdioMode returns true if the MCP tools should be served over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
