package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "json debug", level: "debug", format: "json", wantLevel: zapcore.DebugLevel},
		{name: "console warn", level: "warn", format: "console", wantLevel: zapcore.WarnLevel},
		{name: "default level", level: "", format: "", wantLevel: zapcore.InfoLevel},
		{name: "unknown format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://postgres:hunter2@db:5432/pricing?sslmode=disable", "postgres://postgres:xxxxx@db:5432/pricing?sslmode=disable"},
		{"postgres://postgres@db:5432/pricing", "postgres://postgres@db:5432/pricing"},
		{"host=db user=postgres password=hunter2 dbname=pricing", "host=db user=postgres password=[REDACTED] dbname=pricing"},
		{"clickhouse://default:pw@ch:9000/archive", "clickhouse://default:xxxxx@ch:9000/archive"},
	}

	for _, tt := range tests {
		got := SanitizeDSN(tt.in)
		assert.Equal(t, tt.want, got)
		assert.NotContains(t, got, "hunter2")
	}
}
