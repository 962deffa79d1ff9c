package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		level   string
		enabled slog.Level
		wantErr bool
	}{
		"empty defaults to info": {level: "", enabled: slog.LevelInfo},
		"debug":                  {level: "debug", enabled: slog.LevelDebug},
		"upper case":             {level: "WARN", enabled: slog.LevelWarn},
		"unknown":                {level: "chatty", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := newLogger(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, l.Enabled(context.Background(), tt.enabled))
			assert.False(t, l.Enabled(context.Background(), tt.enabled-1))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("quiz:\n  pagesize: 5\nlog:\n  level: error\n"), 0o600))
	t.Setenv("HTTP_PORT", "9999")

	c, err := loadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Quiz.PageSize)
	assert.Equal(t, int32(9999), c.HTTP.Port)
	assert.Equal(t, 10, c.Quiz.DefaultQuestionCount)
	assert.Empty(t, c.Postgres.Addr)
}

func TestLoadConfig_InvalidLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  port: 8080\n"), 0o600))
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := loadConfig(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: error\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", file})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres address not configured")
}
