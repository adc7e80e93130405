package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesJSONLineWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.Error("otp_dispatch_failed", map[string]any{"target": "admin@x.com", "attempt": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &payload))
	assert.Equal(t, "ERROR", payload["level"])
	assert.Equal(t, "otp_dispatch_failed", payload["msg"])
	assert.Equal(t, "admin@x.com", payload["target"])
	assert.EqualValues(t, 2, payload["attempt"])
	assert.NotEmpty(t, payload["time"])
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.Info("a", nil)
	logger.Warn("b", nil)

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"level":"WARN"`)
}
