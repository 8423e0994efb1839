package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/pkg/config"
)

func TestStructuredFieldsAreWritten(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "debug"

	l := NewLogger(cfg)
	prev := global.Load()
	SetGlobalLogger(l)
	t.Cleanup(func() { SetGlobalLogger(prev) })

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("asset settled", map[string]interface{}{"media_uuid": "m-1", "status": "success"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "asset settled", line["msg"])
	assert.Equal(t, "m-1", line["media_uuid"])
	assert.Equal(t, "success", line["status"])
}

func TestLevelFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"

	l := NewLogger(cfg)
	prev := global.Load()
	SetGlobalLogger(l)
	t.Cleanup(func() { SetGlobalLogger(prev) })

	var buf bytes.Buffer
	SetOutput(&buf)

	Infof("hidden %d", 1)
	assert.Zero(t, buf.Len())
	Warnf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestFileOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Output = "file"
	cfg.Log.Filename = filepath.Join(t.TempDir(), "nested", "svc.log")

	l := NewLogger(cfg)
	l.WithFields(map[string]interface{}{"k": "v"}).Info("to file")
	l.Close()

	data, err := os.ReadFile(cfg.Log.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
