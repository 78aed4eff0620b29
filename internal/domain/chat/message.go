package chat

import (
	"fmt"

	"github.com/kailas-cloud/docchat/internal/domain"
)

// Role identifies the author of a chat message.
type Role string

// Supported roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single chat turn (immutable value object).
type Message struct {
	role    Role
	content string
}

// NewMessage validates the role and creates a Message. Empty content is allowed.
func NewMessage(role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRequest, role)
	}
	return Message{role: role, content: content}, nil
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{role: RoleSystem, content: content}
}

// Role returns the message author.
func (m Message) Role() Role { return m.role }

// Content returns the message text.
func (m Message) Content() string { return m.content }
