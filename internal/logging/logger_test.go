package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "trace", level: "trace", format: "json"},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("shout")
	assert.Error(t, err)
}

func TestTestLogger_Observation(t *testing.T) {
	tl := NewTestLogger()

	tl.Logger.Info("plugin registered")
	tl.Logger.Warn("plugin skipped")

	tl.AssertLogged(t, zapcore.InfoLevel, "registered")
	tl.AssertLogged(t, zapcore.WarnLevel, "skipped")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "registered")
	assert.Len(t, tl.All(), 2)
	assert.Equal(t, 1, tl.FilterMessage("plugin registered").Len())
}
