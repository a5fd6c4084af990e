package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Helper()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "debug", Development: true})
	require.NoError(t, err)

	child := log.With(logger.String("command", "test"))
	child.Debug("hello", logger.Int("rows", 3))
	assert.NotNil(t, child)
}

func TestFromContext(t *testing.T) {
	t.Helper()

	assert.IsType(t, logger.Nop{}, logger.FromContext(context.Background()))

	log := logger.NewNop()
	ctx := logger.WithContext(context.Background(), log)
	assert.Equal(t, log, logger.FromContext(ctx))
}
