package config

import (
	"encoding/json"
	"fmt"
	"os"

	"ticketflow/internal/constants"
	"ticketflow/internal/models"
	"ticketflow/internal/security"
)

var (
	ErrMissingTransportURL = models.ConfigError{Message: "missing transport API URL"}
	ErrMissingDBPath       = models.ConfigError{Message: "missing database path"}
	ErrNoConnections       = models.ConfigError{Message: "connections array is required and must contain at least one connection"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	// Perform security validation after environment overrides
	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Transport.APIBaseURL == "" {
		return ErrMissingTransportURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if len(c.Connections) == 0 {
		return ErrNoConnections
	}

	connectionIDs := make(map[string]bool)
	for i := range c.Connections {
		conn := &c.Connections[i]
		if conn.ID == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty connection id at index %d", i)}
		}
		if connectionIDs[conn.ID] {
			return models.ConfigError{Message: fmt.Sprintf("duplicate connection id: %s", conn.ID)}
		}
		connectionIDs[conn.ID] = true

		queueIDs := make(map[int64]bool)
		for _, q := range conn.Queues {
			if q.ID == 0 {
				return models.ConfigError{Message: fmt.Sprintf("queue without id in connection %s", conn.ID)}
			}
			if queueIDs[q.ID] {
				return models.ConfigError{Message: fmt.Sprintf("duplicate queue id %d in connection %s", q.ID, conn.ID)}
			}
			queueIDs[q.ID] = true
		}

		if conn.MaxUseBotQueues <= 0 {
			conn.MaxUseBotQueues = constants.DefaultMaxUseBotQueues
		}
		if conn.TimeUseBotQueues <= 0 {
			conn.TimeUseBotQueues = constants.DefaultTimeUseBotQueues
		}
		if conn.ReactivationToken == "" {
			conn.ReactivationToken = constants.DefaultReactivationToken
		}
		if conn.MenuStyle == "" {
			conn.MenuStyle = constants.DefaultMenuStyle
		}
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.CleanupIntervalHours <= 0 {
		c.Server.CleanupIntervalHours = constants.CleanupSchedulerIntervalHours
	}
	if c.Transport.TimeoutSec <= 0 {
		c.Transport.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = constants.DefaultAITimeoutSec
	}
	if c.AI.MaxHistory <= 0 {
		c.AI.MaxHistory = constants.DefaultAIMaxHistory
	}
	if c.Flow.TimeoutSec <= 0 {
		c.Flow.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Broker.Queue == "" {
		c.Broker.Queue = constants.DefaultBrokerQueue
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("TRANSPORT_API_URL"); url != "" {
		c.Transport.APIBaseURL = url
	}
	if key := os.Getenv("TICKETFLOW_TRANSPORT_API_KEY"); key != "" {
		c.Transport.APIKey = key
	}

	// SECURITY: Webhook secrets should be set via environment variables
	if secret := os.Getenv("TICKETFLOW_WEBHOOK_SECRET"); secret != "" {
		c.Server.WebhookSecret = secret
	}

	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv("BROKER_URL"); url != "" {
		c.Broker.URL = url
	}
	if key := os.Getenv("TICKETFLOW_AI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if key := os.Getenv("TICKETFLOW_FLOW_API_KEY"); key != "" {
		c.Flow.APIKey = key
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("TICKETFLOW_ENV") == "production"

	if isProduction {
		// In production, webhook secrets are mandatory
		if c.Server.WebhookSecret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set TICKETFLOW_WEBHOOK_SECRET environment variable)"}
		}
		if len(c.Server.WebhookSecret) < 32 {
			return models.ConfigError{Message: "webhook secret must be at least 32 characters long"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Server.WebhookSecret == "" {
			fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set. Set TICKETFLOW_WEBHOOK_SECRET environment variable for security.\n")
		}
	}

	return nil
}
