package config

import (
	"testing"
	"time"

	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "host", cfg.Role)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.CatalogFetchDelay)
	assert.Equal(t, 40, cfg.StartingLife)
	assert.Equal(t, 256, cfg.PeerSendBuffer)
	assert.Equal(t, game.IdentityName, cfg.Identity())
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TABLESYNC_ROLE", "client")
	t.Setenv("TABLESYNC_HOST_URL", "ws://host:8080/table/ws")
	t.Setenv("CARD_IDENTITY", "instance")
	t.Setenv("CATALOG_FETCH_DELAY", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.Role)
	assert.Equal(t, game.IdentityInstance, cfg.Identity())
	assert.Equal(t, 250*time.Millisecond, cfg.CatalogFetchDelay)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STARTING_LIFE", "forty")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	base := Config{Role: "host", CardIdentity: "name", LogLevel: "info", StartingLife: 40}
	require.NoError(t, base.Validate())

	client := base
	client.Role = "client"
	assert.ErrorContains(t, client.Validate(), "TABLESYNC_HOST_URL")

	bad := base
	bad.Role = "spectator"
	bad.CardIdentity = "oracle"
	bad.LogLevel = "loud"
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TABLESYNC_ROLE")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}
