package seed

import (
	"context"
	"testing"

	"pulse/internal/kv"
	"pulse/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeederPopulatesStores(t *testing.T) {
	mem := kv.NewMemory()
	session := store.NewSessionStore(mem)
	friends := store.NewFriendsStore(mem, session)
	chats := store.NewChatsStore(mem, session)

	opts := Options{
		Email:    "demo@pulse.local",
		Password: "demo1234",
		Friends:  3,
		Chats:    2,
	}

	s := NewSeeder(session, friends, chats)
	require.NoError(t, s.Run(context.Background(), opts))

	user := session.Current()
	require.NotNil(t, user)
	assert.Equal(t, "demo@pulse.local", user.Email)
	assert.NotEmpty(t, user.Name)
	assert.GreaterOrEqual(t, user.Age, 21)

	assert.Len(t, friends.Friends(), 3)
	for _, f := range friends.Friends() {
		assert.NotEmpty(t, f.Messages, "every seeded friend has a thread")
		assert.Equal(t, f.Messages[len(f.Messages)-1].Text, f.LastMessage)
	}

	assert.Len(t, chats.Chats(), 2)

	// The demo account can sign back in.
	ok, err := session.SignIn(context.Background(), "demo@pulse.local", "demo1234")
	require.NoError(t, err)
	assert.True(t, ok)
}
