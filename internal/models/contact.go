package models

import (
	"strings"
	"time"
)

const groupIDSuffix = "@g.us"

// Contact represents one remote party on a channel. Created on first
// sighting by the contact resolver; no other component mutates it.
type Contact struct {
	ID           int64     `json:"id"`
	RemoteID     string    `json:"remoteId"`
	ChannelID    string    `json:"channelId"`
	DisplayName  string    `json:"displayName"`
	IsGroup      bool      `json:"isGroup"`
	DisableBot   bool      `json:"disableBot"`
	AcceptsAudio bool      `json:"acceptsAudio"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsGroupIdentifier reports whether a remote identifier names a group
// conversation rather than a 1:1 chat.
func IsGroupIdentifier(remoteID string) bool {
	return strings.HasSuffix(remoteID, groupIDSuffix)
}

// NormalizeRemoteID strips device/agent alias parts from a remote identifier
// so the same party is always keyed the same way regardless of which
// identifier scheme the event arrived with ("123:45@c.us" -> "123@c.us").
func NormalizeRemoteID(remoteID string) string {
	if i := strings.IndexByte(remoteID, ':'); i >= 0 {
		if j := strings.IndexByte(remoteID, '@'); j > i {
			remoteID = remoteID[:i] + remoteID[j:]
		}
	}
	return strings.TrimSpace(remoteID)
}
