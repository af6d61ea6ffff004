package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/config"
	"github.com/a3tai/form-copilot/internal/provider/anthropic"
	"github.com/a3tai/form-copilot/internal/provider/openai"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "test-key"
	return cfg
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = "1.2.3"
	buildTime = "2025-01-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	out := buf.String()
	assert.Contains(t, out, "Form Copilot")
	assert.Contains(t, out, "Version: 1.2.3")
	assert.Contains(t, out, "Build Time: 2025-01-01_10:30:00")
	assert.Contains(t, out, "Git Commit: abc123")
	assert.Contains(t, out, runtime.Version())
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		mode    string
		level   string
		debug   bool
		wantErr bool
	}{
		{mode: config.ModeHTTP, level: "info"},
		{mode: config.ModeStdio, level: "debug", debug: true},
		{mode: config.ModeHTTP, level: "warn"},
		{mode: config.ModeHTTP, level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.level, func(t *testing.T) {
			cfg := testConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.level

			logger, err := newLogger(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
		})
	}
}

func TestNewCompleter(t *testing.T) {
	cfg := testConfig()

	c, err := newCompleter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &openai.Completer{}, c)

	cfg.Provider = config.ProviderAnthropic
	c, err = newCompleter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Completer{}, c)

	cfg.Provider = "cohere"
	_, err = newCompleter(cfg)
	assert.Error(t, err)
}

func TestBuildPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Pdftoppm = "definitely-not-a-real-binary"

	completer, err := newCompleter(cfg)
	require.NoError(t, err)

	analyzer, copilot, err := buildPipeline(cfg, completer, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, analyzer)
	assert.NotNil(t, copilot)
}

func TestRunHTTPMode_Shutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	cfg := testConfig()
	cfg.Port = port

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runHTTPMode(ctx, cfg, handler, zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Address() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunHTTPMode_ListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := testConfig()
	cfg.Port = listener.Addr().(*net.TCPAddr).Port

	err = runHTTPMode(context.Background(), cfg, http.NotFoundHandler(), zap.NewNop())
	assert.Error(t, err)
}
