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

// FriendsStore owns the signed-in identity's friend list and the per-friend
// message threads. Lookups are served from an in-memory snapshot; mutations
// run as atomic transforms against the persisted list and refresh the
// snapshot afterwards.
type FriendsStore struct {
	kv      kv.Store
	session *SessionStore
	log     *observability.StoreLogger
	now     func() time.Time

	mu       sync.RWMutex
	friends  []models.Friend
	watchers []func([]models.Friend)
}

// NewFriendsStore constructs a friends store bound to the session's identity.
func NewFriendsStore(store kv.Store, session *SessionStore) *FriendsStore {
	return &FriendsStore{
		kv:      store,
		session: session,
		log:     observability.NewStoreLogger("friends"),
		now:     time.Now,
	}
}

// Subscribe registers fn to run after every friends-list change.
func (s *FriendsStore) Subscribe(fn func([]models.Friend)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *FriendsStore) key() (string, error) {
	user := s.session.Current()
	if user == nil {
		return "", models.NewNotAuthenticatedError()
	}
	return friendsKey(user.ID), nil
}

func (s *FriendsStore) setFriends(friends []models.Friend) {
	s.mu.Lock()
	s.friends = friends
	watchers := append([]func([]models.Friend){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(cloneFriends(friends))
	}
}

func cloneFriends(friends []models.Friend) []models.Friend {
	out := make([]models.Friend, len(friends))
	copy(out, friends)
	return out
}

// decodeFriends parses a stored list. A corrupt value self-heals to an empty
// list; the next write overwrites the bad record.
func (s *FriendsStore) decodeFriends(ctx context.Context, key string, data []byte) []models.Friend {
	if data == nil {
		return nil
	}
	var friends []models.Friend
	if err := json.Unmarshal(data, &friends); err != nil {
		s.log.LogCorruption(ctx, key, err)
		return nil
	}
	return friends
}

// Load hydrates the snapshot for the current identity. Without a signed-in
// identity the snapshot is empty; previously written lists for other
// identities stay untouched in storage.
func (s *FriendsStore) Load(ctx context.Context) error {
	key, err := s.key()
	if err != nil {
		s.setFriends(nil)
		return nil
	}

	data, getErr := s.kv.Get(ctx, key)
	if errors.Is(getErr, kv.ErrNotFound) {
		s.setFriends(nil)
		return nil
	}
	if getErr != nil {
		s.log.LogError(ctx, "load", getErr)
		return models.NewInternalError(getErr)
	}

	s.setFriends(s.decodeFriends(ctx, key, data))
	return nil
}

// transform applies fn to the persisted friend list atomically and refreshes
// the snapshot with the result.
func (s *FriendsStore) transform(ctx context.Context, op string, fn func([]models.Friend) ([]models.Friend, error)) error {
	key, err := s.key()
	if err != nil {
		return err
	}

	var result []models.Friend
	err = s.kv.Update(ctx, key, func(old []byte) ([]byte, error) {
		next, err := fn(s.decodeFriends(ctx, key, old))
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

	s.setFriends(result)
	s.log.LogOp(ctx, op, nil)
	return nil
}

// AddFriendInput carries the attributes of a contact met in a video session.
type AddFriendInput struct {
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
	Online    bool     `json:"online"`
}

// AddFriend appends a new contact and returns it. Requires a signed-in
// identity.
func (s *FriendsStore) AddFriend(ctx context.Context, in AddFriendInput) (*models.Friend, error) {
	friend := models.Friend{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Age:       in.Age,
		Interests: append([]string(nil), in.Interests...),
		AddedAt:   s.now(),
		Online:    in.Online,
		Messages:  []models.Message{},
	}

	err := s.transform(ctx, "add_friend", func(friends []models.Friend) ([]models.Friend, error) {
		return append(friends, friend), nil
	})
	if err != nil {
		return nil, err
	}
	return &friend, nil
}

// RemoveFriend drops the contact with the given id. Removing an unknown id is
// a no-op; no screen in the client ever called this, but the operation is part
// of the store's contract.
func (s *FriendsStore) RemoveFriend(ctx context.Context, id string) error {
	return s.transform(ctx, "remove_friend", func(friends []models.Friend) ([]models.Friend, error) {
		kept := friends[:0]
		for _, f := range friends {
			if f.ID != id {
				kept = append(kept, f)
			}
		}
		return kept, nil
	})
}

// Friend looks up a contact in the snapshot.
func (s *FriendsStore) Friend(id string) (models.Friend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.friends {
		if f.ID == id {
			return f, true
		}
	}
	return models.Friend{}, false
}

// Friends returns the snapshot of the friend list.
func (s *FriendsStore) Friends() []models.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFriends(s.friends)
}

// UpdateLastMessage rewrites the denormalized preview fields of a contact.
func (s *FriendsStore) UpdateLastMessage(ctx context.Context, id, text string) error {
	return s.transform(ctx, "update_last_message", func(friends []models.Friend) ([]models.Friend, error) {
		for i := range friends {
			if friends[i].ID == id {
				friends[i].LastMessage = text
				friends[i].LastMessageAt = s.now()
				return friends, nil
			}
		}
		return nil, models.NewNotFoundError("Friend", id)
	})
}

// AddMessage appends a message to a contact's thread and updates the preview
// fields in the same atomic transform.
func (s *FriendsStore) AddMessage(ctx context.Context, friendID, text, sender string) (*models.Message, error) {
	message := models.Message{
		ID:     uuid.NewString(),
		Text:   text,
		Sender: sender,
		SentAt: s.now(),
	}

	err := s.transform(ctx, "add_message", func(friends []models.Friend) ([]models.Friend, error) {
		for i := range friends {
			if friends[i].ID == friendID {
				friends[i].Messages = append(friends[i].Messages, message)
				friends[i].LastMessage = message.Text
				friends[i].LastMessageAt = message.SentAt
				return friends, nil
			}
		}
		return nil, models.NewNotFoundError("Friend", friendID)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Messages returns a contact's thread from the snapshot, empty when the
// contact is unknown.
func (s *FriendsStore) Messages(friendID string) []models.Message {
	friend, ok := s.Friend(friendID)
	if !ok {
		return []models.Message{}
	}
	out := make([]models.Message, len(friend.Messages))
	copy(out, friend.Messages)
	return out
}
