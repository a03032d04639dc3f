package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"pulse/internal/kv"
	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/google/uuid"
)

// ChatsStore owns the signed-in identity's session-scoped conversations, one
// per match or group call. It mirrors the friends store structurally: snapshot
// reads, atomic transforms for writes.
type ChatsStore struct {
	kv      kv.Store
	session *SessionStore
	log     *observability.StoreLogger
	now     func() time.Time

	mu       sync.RWMutex
	chats    []models.Chat
	watchers []func([]models.Chat)
}

// NewChatsStore constructs a chats store bound to the session's identity.
func NewChatsStore(store kv.Store, session *SessionStore) *ChatsStore {
	return &ChatsStore{
		kv:      store,
		session: session,
		log:     observability.NewStoreLogger("chats"),
		now:     time.Now,
	}
}

// Subscribe registers fn to run after every chat-list change.
func (s *ChatsStore) Subscribe(fn func([]models.Chat)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *ChatsStore) key() (string, error) {
	user := s.session.Current()
	if user == nil {
		return "", models.NewNotAuthenticatedError()
	}
	return chatsKey(user.ID), nil
}

func (s *ChatsStore) setChats(chats []models.Chat) {
	s.mu.Lock()
	s.chats = chats
	watchers := append([]func([]models.Chat){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(cloneChats(chats))
	}
}

func cloneChats(chats []models.Chat) []models.Chat {
	out := make([]models.Chat, len(chats))
	copy(out, chats)
	return out
}

func (s *ChatsStore) decodeChats(ctx context.Context, key string, data []byte) []models.Chat {
	if data == nil {
		return nil
	}
	var chats []models.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		s.log.LogCorruption(ctx, key, err)
		return nil
	}
	return chats
}

// Load hydrates the snapshot for the current identity.
func (s *ChatsStore) Load(ctx context.Context) error {
	key, err := s.key()
	if err != nil {
		s.setChats(nil)
		return nil
	}

	data, getErr := s.kv.Get(ctx, key)
	if errors.Is(getErr, kv.ErrNotFound) {
		s.setChats(nil)
		return nil
	}
	if getErr != nil {
		s.log.LogError(ctx, "load", getErr)
		return models.NewInternalError(getErr)
	}

	s.setChats(s.decodeChats(ctx, key, data))
	return nil
}

func (s *ChatsStore) transform(ctx context.Context, op string, fn func([]models.Chat) ([]models.Chat, error)) error {
	key, err := s.key()
	if err != nil {
		return err
	}

	var result []models.Chat
	err = s.kv.Update(ctx, key, func(old []byte) ([]byte, error) {
		next, err := fn(s.decodeChats(ctx, key, old))
		if err != nil {
			return nil, err
		}
		result = next
		return json.Marshal(next)
	})
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
		s.log.LogError(ctx, op, err)
		return err
	}

	s.setChats(result)
	s.log.LogOp(ctx, op, nil)
	return nil
}

// AddChatInput carries the attributes of a new conversation thread.
type AddChatInput struct {
	Type        models.ChatType `json:"type"`
	Name        string          `json:"name"`
	Active      bool            `json:"active"`
	PartnerName string          `json:"partnerName"`
	PartnerAge  int             `json:"partnerAge"`
}

// AddChat opens a conversation at the start of a video session and returns
// it. Requires a signed-in identity.
func (s *ChatsStore) AddChat(ctx context.Context, in AddChatInput) (*models.Chat, error) {
	if !in.Type.Valid() {
		return nil, models.NewValidationError("unknown chat type")
	}

	chat := models.Chat{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Name:        in.Name,
		Messages:    []models.Message{},
		CreatedAt:   s.now(),
		IsActive:    in.Active,
		PartnerName: in.PartnerName,
		PartnerAge:  in.PartnerAge,
	}

	err := s.transform(ctx, "add_chat", func(chats []models.Chat) ([]models.Chat, error) {
		return append(chats, chat), nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Chat looks up a conversation in the snapshot.
func (s *ChatsStore) Chat(id string) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.chats {
		if c.ID == id {
			return c, true
		}
	}
	return models.Chat{}, false
}

// Chats returns the snapshot of all conversations.
func (s *ChatsStore) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneChats(s.chats)
}

// ActiveChats returns the conversations still flagged active, in their stored
// order. The home screen's active-connections rail is fed from this.
func (s *ChatsStore) ActiveChats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []models.Chat
	for _, c := range s.chats {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active
}

// AddMessage appends a message to a conversation and updates the preview
// fields in the same atomic transform.
func (s *ChatsStore) AddMessage(ctx context.Context, chatID, text, sender string) (*models.Message, error) {
	message := models.Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: sender,
		SentAt: s.now(),
	}

	err := s.transform(ctx, "add_message", func(chats []models.Chat) ([]models.Chat, error) {
		for i := range chats {
			if chats[i].ID == chatID {
				chats[i].Messages = append(chats[i].Messages, message)
				chats[i].LastMessage = message.Text
				chats[i].LastMessageAt = message.SentAt
				return chats, nil
			}
		}
		return nil, models.NewNotFoundError("Chat", chatID)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Messages returns a conversation's thread from the snapshot, empty when the
// conversation is unknown.
func (s *ChatsStore) Messages(chatID string) []models.Message {
	chat, ok := s.Chat(chatID)
	if !ok {
		return []models.Message{}
	}
	out := make([]models.Message, len(chat.Messages))
	copy(out, chat.Messages)
	return out
}

// MarkInactive soft-deletes a conversation: the record stays, the
// active-connections rail stops showing it.
func (s *ChatsStore) MarkInactive(ctx context.Context, id string) error {
	return s.transform(ctx, "mark_inactive", func(chats []models.Chat) ([]models.Chat, error) {
		for i := range chats {
			if chats[i].ID == id {
				chats[i].IsActive = false
				return chats, nil
			}
		}
		return nil, models.NewNotFoundError("Chat", id)
	})
}
