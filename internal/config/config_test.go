package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Equal(t, ":4000", cfg.HTTPAddr)
	require.Equal(t, StoreFile, cfg.Store.Backend)
	require.Equal(t, "chatHistory.json", cfg.Store.Path)
	require.Equal(t, LeaveResetSelf, cfg.LeavePolicy)
	require.Equal(t, 30*time.Second, cfg.FlushInterval)
	require.Equal(t, 1<<20, cfg.MaxFrameBytes)
	require.Equal(t, 5*time.Minute, cfg.ReadTimeout)
	require.Zero(t, cfg.TCPIdleTimeout, "tcp clients send no keepalive frames")
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoadServerConfig_FromEnvironment(t *testing.T) {
	t.Setenv("DMRELAY_STORE", "SQLite")
	t.Setenv("DMRELAY_STORE_PATH", "/tmp/relay.db")
	t.Setenv("DMRELAY_LEAVE_POLICY", "none")
	t.Setenv("DMRELAY_FLUSH_INTERVAL", "2s")
	t.Setenv("DMRELAY_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	require.Equal(t, StoreSQLite, cfg.Store.Backend)
	require.Equal(t, "/tmp/relay.db", cfg.Store.Path)
	require.Equal(t, LeaveResetNone, cfg.LeavePolicy)
	require.Equal(t, 2*time.Second, cfg.FlushInterval)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestLoadServerConfig_RejectsUnknownValues(t *testing.T) {
	t.Setenv("DMRELAY_STORE", "postgres")
	_, err := LoadServerConfig()
	require.Error(t, err)

	t.Setenv("DMRELAY_STORE", "file")
	t.Setenv("DMRELAY_LEAVE_POLICY", "peer")
	_, err = LoadServerConfig()
	require.Error(t, err)
}

func TestLoadClientConfig_Prefix(t *testing.T) {
	t.Setenv("DMRELAY_COMMAND_PREFIX", ":")
	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	require.Equal(t, ':', cfg.CommandPrefix)
	require.Equal(t, "localhost:9000", cfg.ServerAddr)
}
