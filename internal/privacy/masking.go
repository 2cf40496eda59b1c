package privacy

import (
	"strings"
)

// MaskRemoteID masks a remote conversation identifier, keeping the domain
// suffix for debugging. Example: "5511999990000@c.us" -> "*********0000@c.us".
func MaskRemoteID(remoteID string) string {
	if remoteID == "" {
		return ""
	}

	if i := strings.IndexByte(remoteID, '@'); i >= 0 {
		return maskString(remoteID[:i], 4) + remoteID[i:]
	}
	return maskString(remoteID, 4)
}

// MaskMessageID masks a transport message id while keeping enough tail for
// log correlation.
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	// "true_5511999990000@c.us_A1B2C3D4" keeps its structure with each part
	// masked separately.
	if parts := strings.SplitN(messageID, "_", 3); len(parts) == 3 {
		return parts[0] + "_" + MaskRemoteID(parts[1]) + "_" + maskString(parts[2], 4)
	}
	return maskString(messageID, 8)
}

// maskString masks a string showing only the last n characters.
func maskString(s string, keepLast int) string {
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}
