package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		input    []any
		wantKeys []string
	}{
		{"empty input", nil, nil},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, []string{"a", "b", "c"}},
		{"time and duration", []any{"t", time.Now(), "d", time.Second}, []string{"t", "d"}},
		{"error only", []any{boom}, []string{"error"}},
		{"field passthrough", []any{zap.String("x", "y"), "num", 42}, []string{"x", "num"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			keys := make([]string, 0, len(fields))
			for _, f := range fields {
				require.NotEmpty(t, f.Key, "field has empty key: %+v", f)
				keys = append(keys, f.Key)
			}
			assert.Equal(t, len(tt.wantKeys), len(keys))
			if len(tt.wantKeys) > 0 {
				assert.Equal(t, tt.wantKeys, keys)
			}
		})
	}
}

func TestZapLoggerWithValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core)).WithName("poller").WithValues("registration", "AB12CDE")

	logger.Error(errors.New("upstream 500"), "lookup failed", "attempt", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "poller", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "AB12CDE", ctx["registration"])
	assert.Equal(t, int64(1), ctx["attempt"])
	assert.Equal(t, "upstream 500", ctx["error"])
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Level = "loud"
	opts.Format = "xml"
	assert.Len(t, opts.Validate(), 2)
}
