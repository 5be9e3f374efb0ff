package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONDUIT_CONFIG", "")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "std", c.IO)
	require.Equal(t, 30*time.Second, c.API.Timeout)
	require.Equal(t, "conduit/out", c.MQTT.OutTopic)
	require.Empty(t, c.Schedule.Refresh)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "conduit.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`
api:
  base_url: http://localhost:3000/api
  timeout: 5s
storage:
  driver: bolt
  path: tokens.db
io: ws
schedule:
  refresh: "0 */5 * * * * *"
`), 0644))

	t.Setenv("CONDUIT_WS_ADDR", ":9999")

	c, err := Load(filename)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000/api", c.API.BaseURL)
	require.Equal(t, 5*time.Second, c.API.Timeout)
	require.Equal(t, "bolt", c.Storage.Driver)
	require.Equal(t, "ws", c.IO)
	require.Equal(t, ":9999", c.WS.Addr)
	require.Equal(t, "0 */5 * * * * *", c.Schedule.Refresh)
}

func TestLoadBadDriver(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "conduit.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{"storage":{"driver":"floppy"}}`), 0644))

	_, err := Load(filename)
	require.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
