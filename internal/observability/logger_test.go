package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/spinbook/internal/infrastructure/config"
)

func TestInitializeConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	var buf bytes.Buffer

	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "spinbook"}, zapcore.AddSync(&buf))
	GetLogger().Named("gate").Info("Booking window open.", zap.Int("checks", 2))

	out := buf.String()
	assert.Contains(t, out, colorGreen+"INFO"+colorReset)
	assert.Contains(t, out, "spinbook.gate.")
	assert.Contains(t, out, "Booking window open.")
	assert.Contains(t, out, `"checks": 2`)
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	var first, second bytes.Buffer

	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
	GetLogger().Info("hello")

	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestInitializeLevelAndFile(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "spinbook.log")

	Initialize(config.LoggerConfig{Level: "warn", Format: "json", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&buf))
	log := GetLogger()
	log.Info("dropped")
	log.Warn("Seat already booked.", zap.String("seat", "Bike 3"))
	Sync()

	assert.NotContains(t, buf.String(), "dropped")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Bike 3", entry["seat"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	var buf bytes.Buffer

	Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	GetLogger().Debug("hidden")
	GetLogger().Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}
