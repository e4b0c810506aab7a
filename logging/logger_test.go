package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		config      Config
		wantErr     bool
	}{
		{description: "defaults", config: *NewDefaultConfig()},
		{description: "json debug", config: Config{Level: "debug", Format: "json"}},
		{description: "bad level", config: Config{Level: "loud", Format: "json"}, wantErr: true},
		{description: "bad format", config: Config{Level: "info", Format: "xml"}, wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			err := testCase.config.Validate()
			assert.Equal(t, testCase.wantErr, err != nil)
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger, err := NewLoggerTo(&Config{Level: "info", Format: "json"}, buffer)
	require.NoError(t, err)

	ctx := WithStep(WithRunID(context.Background(), "run-1"), "backup")
	logger.Info(ctx, "step started", zap.Int("files", 3))
	logger.Debug(ctx, "hidden")

	output := buffer.String()
	assert.Contains(t, output, `"run.id":"run-1"`)
	assert.Contains(t, output, `"step":"backup"`)
	assert.Contains(t, output, `"files":3`)
	assert.NotContains(t, output, "hidden")
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger()
	logger.Warn(context.Background(), "syntax error after fix")
	logger.AssertLogged(t, zapcore.WarnLevel, "syntax error")
	assert.Len(t, logger.All(), 1)
}
