package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with required secrets", func(t *testing.T) {
		t.Setenv("RELEASES_AUTH_JWTSECRET", "jwt")
		t.Setenv("RELEASES_AUTH_REGISTERPASSWORD", "register")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
		require.Equal(t, "data/releases.db", cfg.Database.Path)
		require.Equal(t, "releases", cfg.Storage.KeyPrefix)
		require.Equal(t, 60, cfg.Auth.TokenTTLMinutes)
		require.Equal(t, "info", cfg.Log.Level)
		require.False(t, cfg.StorageEnabled())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("RELEASES_AUTH_JWTSECRET", "jwt")
		t.Setenv("RELEASES_AUTH_REGISTERPASSWORD", "register")
		t.Setenv("RELEASES_STORAGE_BUCKET", "artifacts")
		t.Setenv("RELEASES_SERVER_ADDR", "127.0.0.1:9000")
		t.Setenv("RELEASES_AUTH_TOKENTTLMINUTES", "5")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
		require.Equal(t, 5, cfg.Auth.TokenTTLMinutes)
		require.True(t, cfg.StorageEnabled())
	})

	t.Run("missing secrets", func(t *testing.T) {
		t.Setenv("RELEASES_AUTH_JWTSECRET", "")
		t.Setenv("RELEASES_AUTH_REGISTERPASSWORD", "register")

		_, err := Load()
		require.EqualError(t, err, "auth jwt secret is required")
	})
}
