package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ev3-dog/codec"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9100"
  websocket: ":9101"
client:
  address: ws://front.local:9101/
  codec: proto
  heartbeat: 2s
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Server.Listen)
	require.Equal(t, ":9101", cfg.Server.WebSocket)
	require.Equal(t, 20.0, cfg.Server.Rate, "unset keys keep their default")
	require.Equal(t, 2*time.Second, cfg.Client.Heartbeat)
	require.True(t, cfg.Client.IsWebSocket())

	ct, err := cfg.Client.CodecType()
	require.NoError(t, err)
	require.Equal(t, codec.CodecTypeProto, ct)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("server:\n  listn: \":9000\"\n"))
	require.ErrorContains(t, err, "listn")

	_, err = Parse([]byte("client:\n  codec: xml\n"))
	require.ErrorContains(t, err, "xml")

	_, err = Parse([]byte("server:\n  rate: 10\n  burst: 0\nlog:\n  format: xml\n"))
	require.ErrorContains(t, err, "burst")
	require.ErrorContains(t, err, "format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
