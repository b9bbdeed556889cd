package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json respects level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "warn", "json")
		log.Info("dropped")
		log.Warn("kept", "record_id", "imm-1")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "imm-1", entry["record_id"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "debug", "TEXT").Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}
