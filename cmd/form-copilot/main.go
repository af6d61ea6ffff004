package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/a3tai/form-copilot/internal/api"
	"github.com/a3tai/form-copilot/internal/assistant"
	"github.com/a3tai/form-copilot/internal/config"
	"github.com/a3tai/form-copilot/internal/formmap"
	"github.com/a3tai/form-copilot/internal/mcp"
	"github.com/a3tai/form-copilot/internal/pdf"
	"github.com/a3tai/form-copilot/internal/provider"
	"github.com/a3tai/form-copilot/internal/provider/anthropic"
	"github.com/a3tai/form-copilot/internal/provider/openai"
	"github.com/a3tai/form-copilot/internal/render"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// newLogger builds the process logger. In stdio mode stdout carries the MCP
// protocol, so logs always go to stderr.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.IsStdioMode() {
		zc.OutputPaths = []string{"stderr"}
	} else {
		zc.OutputPaths = []string{"stdout"}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// newCompleter builds the model client for the configured provider
func newCompleter(cfg *config.Config) (provider.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewCompleter(cfg.BaseURL, cfg.ChatModel, openai.WithToken(cfg.APIKey))

	case config.ProviderAnthropic:
		url := cfg.BaseURL
		if url == config.DefaultBaseURL {
			url = ""
		}
		return anthropic.NewCompleter(url, cfg.ChatModel, anthropic.WithToken(cfg.APIKey))

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// buildPipeline wires the analyzer and the assistant from the configuration
func buildPipeline(cfg *config.Config, completer provider.Completer, logger *zap.Logger) (*formmap.Analyzer, *assistant.Assistant, error) {
	copilot, err := assistant.New(completer,
		assistant.WithModels(cfg.LabelModel, cfg.ChatModel, cfg.InterviewModel),
		assistant.WithTimeout(cfg.ModelTimeout),
		assistant.WithLogger(logger.Named("assistant")),
	)
	if err != nil {
		return nil, nil, err
	}

	rasterizer := render.NewPoppler(
		render.WithBinary(cfg.Pdftoppm),
		render.WithTimeout(cfg.RenderTimeout),
		render.WithLogger(logger.Named("render")),
	)
	if !rasterizer.Available() {
		logger.Warn("pdftoppm not found, document analysis will fail", zap.String("binary", cfg.Pdftoppm))
	}

	analyzer := formmap.NewAnalyzer(pdf.NewValidator(cfg.MaxFileSize), rasterizer, copilot,
		formmap.WithScale(cfg.RenderScale),
		formmap.WithCache(cfg.AnalysisCache),
		formmap.WithLogger(logger.Named("formmap")),
	)

	return analyzer, copilot, nil
}

// runHTTPMode serves the REST API until a shutdown signal arrives
func runHTTPMode(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Debug("starting", zap.Stringer("config", cfg))

	completer, err := newCompleter(cfg)
	if err != nil {
		logger.Fatal("failed to create model client", zap.Error(err))
	}

	analyzer, copilot, err := buildPipeline(cfg, completer, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if cfg.IsStdioMode() {
		server, err := mcp.NewServer(cfg, analyzer, copilot, logger.Named("mcp"))
		if err != nil {
			logger.Fatal("failed to create MCP server", zap.Error(err))
		}

		if err := server.Run(ctx); err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	handler := api.New(analyzer, copilot,
		api.WithExampleFile(cfg.ExampleFile),
		api.WithMaxFileSize(cfg.MaxFileSize),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(logger.Named("api")),
	)

	if err := runHTTPMode(ctx, cfg, handler.Routes(), logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Form Copilot\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
