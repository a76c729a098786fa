package logger

import (
	"assessment_engine_backend/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		want    zapcore.Level
		wantErr bool
	}{
		{"", "debug", zap.DebugLevel, false},
		{"", "release", zap.InfoLevel, false},
		{"WARN", "debug", zap.WarnLevel, false},
		{"error", "release", zap.ErrorLevel, false},
		{"verbose", "debug", zap.InfoLevel, true},
	}
	for _, tc := range tests {
		t.Run(tc.name+"/"+tc.mode, func(t *testing.T) {
			got, err := parseLevel(tc.name, tc.mode)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew_WritesJSONFileAndHonoursLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "engine.log")
	lvl := zap.NewAtomicLevelAt(zap.WarnLevel)
	log := New(config.LogConfig{File: file, MaxSizeMB: 1}, lvl)

	log.Info("hidden")
	log.Warn("attempt expired", zap.String("attemptId", "a-1"))
	lvl.SetLevel(zap.InfoLevel)
	log.Info("now visible")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"attempt expired"`)
	assert.Contains(t, out, `"attemptId":"a-1"`)
	assert.Contains(t, out, `"service":"assessment-engine"`)
	assert.Contains(t, out, "now visible")
}

func TestNew_NoOutputsIsNop(t *testing.T) {
	log := New(config.LogConfig{}, zap.NewAtomicLevel())
	assert.NotPanics(t, func() { log.Info("dropped") })
}
