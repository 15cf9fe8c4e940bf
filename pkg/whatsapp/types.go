package whatsapp

import (
	"context"
	"strings"
)

// Sender abstracts outbound delivery to a WhatsApp chat (for dependency injection).
// Implementations are best-effort: errors are logged by callers, never retried
// beyond the adapter's own policy, and never surfaced past the webhook boundary.
type Sender interface {
	// SendMessage delivers a text message to the chat
	SendMessage(ctx context.Context, chatID string, text string) error

	// SendFile uploads a local file to the chat with a caption
	SendFile(ctx context.Context, chatID string, localPath string, caption string) error

	// RemoveParticipant removes a participant from a group chat
	RemoveParticipant(ctx context.Context, groupID string, participant string) error
}

// GroupSuffix terminates group chat ids in the provider's addressing scheme
const GroupSuffix = "@g.us"

// IsGroupChat reports whether a chat id addresses a group conversation
func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, GroupSuffix)
}

// ValidationError represents validation failure
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error interface
func (v ValidationError) Error() string {
	return v.Message
}
