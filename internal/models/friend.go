package models

import "time"

// Sender values used for one-on-one threads. Group chats carry the speaker's
// display name instead.
const (
	SenderMe   = "me"
	SenderThem = "them"
)

// Message is a single text entry in a friend or chat thread. Messages are
// append-only: there is no edit or delete operation.
type Message struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Sender string    `json:"sender"`
	SentAt time.Time `json:"sentAt"`
}

// Friend is an added contact with its message thread. LastMessage and
// LastMessageAt are a denormalized preview cache updated atomically with every
// message append.
type Friend struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Interests     []string  `json:"interests"`
	AddedAt       time.Time `json:"addedAt"`
	Online        bool      `json:"online"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt,omitzero"`
	Messages      []Message `json:"messages"`
}
