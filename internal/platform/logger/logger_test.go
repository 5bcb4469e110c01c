package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-batch/internal/config"
)

func TestSetupParsesLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
		logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: level})

		require.NoError(t, err, "level %q", level)
		assert.NotNil(t, logger, "level %q", level)
	}
}

func TestSetupFallsBackOnInvalidLevel(t *testing.T) {
	logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "loud"})

	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	attached := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := WithLogger(context.Background(), attached)

	assert.Same(t, attached, FromContext(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
