package chat

import "strings"

// ValidateSessionID rejects blank session identifiers.
func ValidateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return InvalidInput("sessionId is required")
	}
	return nil
}

// ValidateContent rejects blank message content.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return InvalidInput("content is required")
	}
	return nil
}
