package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ticketflow/internal/constants"
	"ticketflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg models.Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func validConfig() models.Config {
	return models.Config{
		Transport: models.TransportConfig{APIBaseURL: "http://localhost:3000"},
		Database:  models.DatabaseConfig{Path: "tickets.db"},
		Connections: []models.Connection{
			{
				ID:   "conn-1",
				Name: "Support Line",
				Queues: []models.QueueConfig{
					{ID: 1, Name: "Vendas"},
					{ID: 2, Name: "Suporte"},
				},
			},
		},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, validConfig())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)

	conn := cfg.Connections[0]
	assert.Equal(t, constants.DefaultMaxUseBotQueues, conn.MaxUseBotQueues)
	assert.Equal(t, constants.DefaultTimeUseBotQueues, conn.TimeUseBotQueues)
	assert.Equal(t, constants.DefaultReactivationToken, conn.ReactivationToken)
	assert.Equal(t, constants.DefaultMenuStyle, conn.MenuStyle)
}

func TestLoadConfigMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Config)
		want   error
	}{
		{"missing transport URL", func(c *models.Config) { c.Transport.APIBaseURL = "" }, ErrMissingTransportURL},
		{"missing db path", func(c *models.Config) { c.Database.Path = "" }, ErrMissingDBPath},
		{"no connections", func(c *models.Config) { c.Connections = nil }, ErrNoConnections},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			path := writeConfig(t, cfg)

			_, err := LoadConfig(path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfigDuplicateConnectionID(t *testing.T) {
	cfg := validConfig()
	cfg.Connections = append(cfg.Connections, cfg.Connections[0])
	path := writeConfig(t, cfg)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate connection id")
}

func TestLoadConfigDuplicateQueueID(t *testing.T) {
	cfg := validConfig()
	cfg.Connections[0].Queues = append(cfg.Connections[0].Queues, models.QueueConfig{ID: 1, Name: "Again"})
	path := writeConfig(t, cfg)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate queue id")
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRANSPORT_API_URL", "http://gateway:9000")
	t.Setenv("TICKETFLOW_WEBHOOK_SECRET", "env-secret")
	t.Setenv("DB_PATH", "override.db")

	path := writeConfig(t, validConfig())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gateway:9000", cfg.Transport.APIBaseURL)
	assert.Equal(t, "env-secret", cfg.Server.WebhookSecret)
	assert.Equal(t, "override.db", cfg.Database.Path)
}

func TestLoadConfigProductionRequiresSecret(t *testing.T) {
	t.Setenv("TICKETFLOW_ENV", "production")
	t.Setenv("TICKETFLOW_WEBHOOK_SECRET", "")

	path := writeConfig(t, validConfig())

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook secret is required")
}

func TestLoadConfigProductionWeakSecret(t *testing.T) {
	t.Setenv("TICKETFLOW_ENV", "production")
	t.Setenv("TICKETFLOW_WEBHOOK_SECRET", "short")

	path := writeConfig(t, validConfig())

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoadConfigProductionRejectsDebugLogging(t *testing.T) {
	t.Setenv("TICKETFLOW_ENV", "production")
	t.Setenv("TICKETFLOW_WEBHOOK_SECRET", "a-very-long-production-secret-value-0123456789")

	cfg := validConfig()
	cfg.LogLevel = "debug"
	path := writeConfig(t, cfg)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug logging")
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
