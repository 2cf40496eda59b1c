package service

import (
	"ticketflow/internal/models"
)

// ConnectionRegistry resolves channel identifiers to their connection
// configuration. Built once at startup from the loaded config; read-only
// afterwards.
type ConnectionRegistry struct {
	byID []models.Connection
}

func NewConnectionRegistry(connections []models.Connection) *ConnectionRegistry {
	return &ConnectionRegistry{byID: connections}
}

// Get returns the connection for a channel id, or nil.
func (r *ConnectionRegistry) Get(channelID string) *models.Connection {
	for i := range r.byID {
		if r.byID[i].ID == channelID {
			return &r.byID[i]
		}
	}
	return nil
}

// Connections returns all configured connections.
func (r *ConnectionRegistry) Connections() []models.Connection {
	return r.byID
}
