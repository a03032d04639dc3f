// Package seed provides helpers to create demo data in the state stores.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"time"

	"pulse/internal/models"
	"pulse/internal/store"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much demo data gets generated.
type Options struct {
	Email    string
	Password string
	Friends  int
	Chats    int
}

// DefaultOptions returns the demo account the development build boots with.
func DefaultOptions() Options {
	return Options{
		Email:    "demo@pulse.local",
		Password: "demo1234",
		Friends:  6,
		Chats:    4,
	}
}

// Seeder populates the state stores with a signed-in demo identity and a
// plausible set of contacts and conversations.
type Seeder struct {
	session *store.SessionStore
	friends *store.FriendsStore
	chats   *store.ChatsStore
}

// NewSeeder creates a Seeder over the given stores.
func NewSeeder(session *store.SessionStore, friends *store.FriendsStore, chats *store.ChatsStore) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{session: session, friends: friends, chats: chats}
}

// Run creates the demo account, completes its profile, and fills the friend
// and chat lists.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if err := s.session.SignUp(ctx, opts.Email, opts.Password); err != nil {
		return fmt.Errorf("seed signup: %w", err)
	}
	if _, err := s.session.UpdateProfile(ctx, store.ProfileInput{
		Name:            gofakeit.FirstName(),
		Age:             gofakeit.Number(21, 35),
		Interests:       fakeInterests(),
		LookingFor:      models.LookingForDating,
		LocationEnabled: true,
		Distance:        gofakeit.Number(5, 50),
	}); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}

	for i := 0; i < opts.Friends; i++ {
		if err := s.seedFriend(ctx); err != nil {
			return err
		}
	}
	for i := 0; i < opts.Chats; i++ {
		if err := s.seedChat(ctx, i%2 == 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedFriend(ctx context.Context) error {
	friend, err := s.friends.AddFriend(ctx, store.AddFriendInput{
		Name:      gofakeit.FirstName(),
		Age:       gofakeit.Number(20, 38),
		Interests: fakeInterests(),
		Online:    gofakeit.Bool(),
	})
	if err != nil {
		return fmt.Errorf("seed friend: %w", err)
	}

	// A short back-and-forth so the thread preview looks lived-in.
	for i := 0; i < gofakeit.Number(1, 4); i++ {
		sender := models.SenderThem
		if i%2 == 1 {
			sender = models.SenderMe
		}
		if _, err := s.friends.AddMessage(ctx, friend.ID, gofakeit.HipsterSentence(6), sender); err != nil {
			return fmt.Errorf("seed friend message: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedChat(ctx context.Context, active bool) error {
	name := gofakeit.FirstName()
	chat, err := s.chats.AddChat(ctx, store.AddChatInput{
		Type:        models.ChatTypeDate,
		Name:        name,
		Active:      active,
		PartnerName: name,
		PartnerAge:  gofakeit.Number(20, 38),
	})
	if err != nil {
		return fmt.Errorf("seed chat: %w", err)
	}

	if _, err := s.chats.AddMessage(ctx, chat.ID, gofakeit.HipsterSentence(5), models.SenderThem); err != nil {
		return fmt.Errorf("seed chat message: %w", err)
	}
	return nil
}

func fakeInterests() []string {
	pool := []string{"music", "travel", "cooking", "climbing", "film", "gaming", "yoga", "photography"}
	n := gofakeit.Number(2, 4)
	idx := indexes(len(pool))
	gofakeit.ShuffleInts(idx)
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
