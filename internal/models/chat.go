package models

import "time"

// ChatType classifies a conversation thread.
type ChatType string

// Chat types. A "date" chat belongs to a one-on-one video session, a "group"
// chat to a group call, and a "friend" chat to a thread with an added contact.
const (
	ChatTypeDate   ChatType = "date"
	ChatTypeGroup  ChatType = "group"
	ChatTypeFriend ChatType = "friend"
)

// Valid reports whether the chat type is one of the known values.
func (t ChatType) Valid() bool {
	switch t {
	case ChatTypeDate, ChatTypeGroup, ChatTypeFriend:
		return true
	}
	return false
}

// Chat is a session-scoped conversation, one per match or group call. The
// IsActive flag gates whether it shows up in the active-connections rail;
// deactivation is a soft delete, the record itself is kept.
type Chat struct {
	ID            string    `json:"id"`
	Type          ChatType  `json:"type"`
	Name          string    `json:"name"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt,omitzero"`
	IsActive      bool      `json:"isActive"`
	PartnerName   string    `json:"partnerName,omitempty"`
	PartnerAge    int       `json:"partnerAge,omitempty"`
}
