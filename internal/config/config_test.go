package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"CHAT_HOST", "CHAT_PORT", "CHAT_METRICS_ADDR", "LOG_LEVEL", "CHAT_TRANSCRIPT_PATH",
	"CHAT_HISTORY_GREETS", "CHAT_MAX_MESSAGE_LENGTH", "CHAT_WRITE_TIMEOUT",
	"CHAT_SERVER_ADDR", "CHAT_COLOURS",
}

// clearEnv unsets every variable for the test and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	cfg, err := LoadServer()

	req.NoError(err)
	req.Equal("127.0.0.1:8887", cfg.Addr())
	req.Equal("", cfg.MetricsAddr)
	req.Equal(slog.LevelInfo, cfg.Level())
	req.Equal("", cfg.TranscriptPath)
	req.Equal(10, cfg.HistoryGreets)
	req.Equal(512, cfg.MaxMessageLength)
	req.Equal(time.Duration(0), cfg.WriteTimeout)
}

func TestLoadServer_FromEnvironment(t *testing.T) {
	req := require.New(t)
	clearEnv(t)
	t.Setenv("CHAT_HOST", "0.0.0.0")
	t.Setenv("CHAT_PORT", "9000")
	t.Setenv("CHAT_METRICS_ADDR", "127.0.0.1:9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CHAT_TRANSCRIPT_PATH", "/tmp/chat")
	t.Setenv("CHAT_HISTORY_GREETS", "0")
	t.Setenv("CHAT_WRITE_TIMEOUT", "2s")

	cfg, err := LoadServer()

	req.NoError(err)
	req.Equal("0.0.0.0:9000", cfg.Addr())
	req.Equal("127.0.0.1:9090", cfg.MetricsAddr)
	req.Equal(slog.LevelDebug, cfg.Level())
	req.Equal("/tmp/chat", cfg.TranscriptPath)
	req.Zero(cfg.HistoryGreets)
	req.Equal(2*time.Second, cfg.WriteTimeout)
}

func TestLoadServer_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port out of range", "CHAT_PORT", "70000"},
		{"port not a number", "CHAT_PORT", "http"},
		{"unknown log level", "LOG_LEVEL", "chatty"},
		{"negative greets", "CHAT_HISTORY_GREETS", "-1"},
		{"negative write timeout", "CHAT_WRITE_TIMEOUT", "-1s"},
		{"metrics address without port", "CHAT_METRICS_ADDR", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadServer()

			require.Error(t, err)
		})
	}
}

func TestLoadClient(t *testing.T) {
	req := require.New(t)
	clearEnv(t)

	cfg, err := LoadClient()
	req.NoError(err)
	req.Equal("127.0.0.1:8887", cfg.ServerAddr)
	req.True(cfg.Colours)

	t.Setenv("CHAT_SERVER_ADDR", "chat.example.org:7000")
	t.Setenv("CHAT_COLOURS", "false")
	cfg, err = LoadClient()
	req.NoError(err)
	req.Equal("chat.example.org:7000", cfg.ServerAddr)
	req.False(cfg.Colours)

	t.Setenv("CHAT_SERVER_ADDR", "no-port")
	_, err = LoadClient()
	req.Error(err)
}

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	req.Equal(slog.LevelWarn, ParseLevel("warn"))
	req.Equal(slog.LevelError, ParseLevel(" ERROR "))
	req.Equal(slog.LevelInfo, ParseLevel("nonsense"))
}
