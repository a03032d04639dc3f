package store

import (
	"context"
	"testing"
	"time"

	"pulse/internal/kv"
	"pulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	email string
	code  string
}

func (c *captureSender) SendResetCode(_ context.Context, email, code string) error {
	c.email = email
	c.code = code
	return nil
}

func newTestSession(t *testing.T, opts ...SessionOption) (*SessionStore, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	return NewSessionStore(mem, opts...), mem
}

func TestSignUpThenSignIn(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))

	ok, err := s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SignIn(ctx, "a@b.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s.Current())
}

func TestSignInNoAccount(t *testing.T) {
	s, _ := newTestSession(t)

	ok, err := s.SignIn(context.Background(), "nobody@x.com", "pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignInHydratesProfile(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	created, err := s.UpdateProfile(ctx, ProfileInput{
		Name:       "Ann",
		Age:        25,
		LookingFor: models.LookingForDating,
	})
	require.NoError(t, err)

	// Fresh store over the same backend, as after an app restart.
	s2 := NewSessionStore(mem)
	ok, err := s2.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, s2.Current())
	assert.Equal(t, created.ID, s2.Current().ID)
	assert.Equal(t, "Ann", s2.Current().Name)
}

func TestSignInCorruptCredentialsSelfHeals(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, keyCredentials, []byte("{not json")))
	require.NoError(t, mem.Set(ctx, keyProfile, []byte("{not json either")))

	ok, err := s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = mem.Get(ctx, keyCredentials)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = mem.Get(ctx, keyProfile)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestLoadCorruptProfileSelfHeals(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	require.NoError(t, mem.Set(ctx, keyProfile, []byte("garbage")))

	require.NoError(t, s.Load(ctx))
	assert.Nil(t, s.Current())

	_, err := mem.Get(ctx, keyCredentials)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = mem.Get(ctx, keyProfile)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestUpdateProfileRequiresCredentials(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.UpdateProfile(context.Background(), ProfileInput{
		Name:       "Ann",
		Age:        25,
		LookingFor: models.LookingForDating,
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotAuthenticated, appErr.Code)
}

func TestUpdateProfileAssignsDefaults(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "u@x.com", "pw123"))
	user, err := s.UpdateProfile(ctx, ProfileInput{
		Name:            "Ann",
		Age:             25,
		Interests:       []string{"Music"},
		LookingFor:      models.LookingForDating,
		LocationEnabled: false,
		Distance:        25,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "u@x.com", user.Email)
	assert.Equal(t, DefaultFreeCalls, user.CallsRemaining)
	assert.False(t, user.IsPremium)
	require.NotNil(t, s.Current())
	assert.Equal(t, user.ID, s.Current().ID)
}

func TestUpdateSettingsPartialMerge(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	_, err := s.UpdateProfile(ctx, ProfileInput{
		Name:       "Ann",
		Age:        25,
		Interests:  []string{"Music"},
		LookingFor: models.LookingForDating,
		Distance:   25,
	})
	require.NoError(t, err)

	name := "Anna"
	distance := 50
	user, err := s.UpdateSettings(ctx, SettingsPatch{Name: &name, Distance: &distance})
	require.NoError(t, err)

	assert.Equal(t, "Anna", user.Name)
	assert.Equal(t, 50, user.Distance)
	// Untouched fields survive the merge.
	assert.Equal(t, 25, user.Age)
	assert.Equal(t, []string{"Music"}, user.Interests)
	assert.Equal(t, models.LookingForDating, user.LookingFor)
}

func TestUpdateSettingsRequiresIdentity(t *testing.T) {
	s, _ := newTestSession(t)

	name := "Ann"
	_, err := s.UpdateSettings(context.Background(), SettingsPatch{Name: &name})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotAuthenticated, appErr.Code)
}

func TestUpdateGenderPreference(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	_, err := s.UpdateProfile(ctx, ProfileInput{Name: "Ann", Age: 25, LookingFor: models.LookingForDating})
	require.NoError(t, err)

	user, err := s.UpdateGenderPreference(ctx, models.PreferEveryone)
	require.NoError(t, err)
	assert.Equal(t, models.PreferEveryone, user.GenderPreference)

	_, err = s.UpdateGenderPreference(ctx, models.GenderPreference("aliens"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestDecrementCallFloorsAtZero(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "u@x.com", "pw123"))
	_, err := s.UpdateProfile(ctx, ProfileInput{Name: "Ann", Age: 25, LookingFor: models.LookingForDating})
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := s.DecrementCall(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, s.Current().CallsRemaining)
}

func TestDecrementCallPremiumNoop(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	_, err := s.UpdateProfile(ctx, ProfileInput{Name: "Ann", Age: 25, LookingFor: models.LookingForDating})
	require.NoError(t, err)

	user, err := s.SetPremium(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, models.UnlimitedCalls, user.CallsRemaining)

	for i := 0; i < 3; i++ {
		user, err = s.DecrementCall(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, models.UnlimitedCalls, user.CallsRemaining)
	assert.True(t, user.IsPremium)
}

func TestResetPasswordFlow(t *testing.T) {
	sender := &captureSender{}
	s, mem := newTestSession(t, WithSender(sender))
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "oldpw"))

	found, err := s.SendResetCode(ctx, "other@b.com")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.SendResetCode(ctx, "a@b.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, sender.code, 6)

	wrong := "000000"
	if sender.code == wrong {
		wrong = "000001"
	}
	ok, err := s.ResetPassword(ctx, "a@b.com", wrong, "newpw")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ResetPassword(ctx, "a@b.com", sender.code, "newpw")
	require.NoError(t, err)
	assert.True(t, ok)

	// Reset record is consumed.
	_, err = mem.Get(ctx, keyResetCode)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	ok, err = s.SignIn(ctx, "a@b.com", "newpw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SignIn(ctx, "a@b.com", "oldpw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetCodeExpiry(t *testing.T) {
	sender := &captureSender{}
	now := time.Now()
	s, _ := newTestSession(t,
		WithSender(sender),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))

	found, err := s.SendResetCode(ctx, "a@b.com")
	require.NoError(t, err)
	require.True(t, found)

	// 16 minutes later the code is dead even when correct.
	now = now.Add(16 * time.Minute)
	ok, err := s.ResetPassword(ctx, "a@b.com", sender.code, "newpw")
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh code used one minute later works.
	found, err = s.SendResetCode(ctx, "a@b.com")
	require.NoError(t, err)
	require.True(t, found)

	now = now.Add(time.Minute)
	ok, err = s.ResetPassword(ctx, "a@b.com", sender.code, "newpw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignOutClearsEverything(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	_, err := s.UpdateProfile(ctx, ProfileInput{Name: "Ann", Age: 25, LookingFor: models.LookingForDating})
	require.NoError(t, err)

	var notified []*models.User
	s.Subscribe(func(u *models.User) { notified = append(notified, u) })

	require.NoError(t, s.SignOut(ctx))
	assert.Nil(t, s.Current())
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])

	_, err = mem.Get(ctx, keyCredentials)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = mem.Get(ctx, keyProfile)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestSubscribeSeesProfileCreation(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	var got *models.User
	s.Subscribe(func(u *models.User) { got = u })

	require.NoError(t, s.SignUp(ctx, "a@b.com", "pw"))
	_, err := s.UpdateProfile(ctx, ProfileInput{Name: "Ann", Age: 25, LookingFor: models.LookingForDating})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "Ann", got.Name)
}

func TestOnboardingFlag(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	seen, err := s.HasSeenOnboarding(ctx)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkOnboardingSeen(ctx))

	seen, err = s.HasSeenOnboarding(ctx)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestEndToEndSignupScenario(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SignUp(ctx, "u@x.com", "pw123"))
	user, err := s.UpdateProfile(ctx, ProfileInput{
		Name:            "Ann",
		Age:             25,
		Interests:       []string{"Music"},
		LookingFor:      models.LookingForDating,
		LocationEnabled: false,
		Distance:        25,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, user.CallsRemaining)
	assert.False(t, user.IsPremium)

	for i := 0; i < 6; i++ {
		user, err = s.DecrementCall(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, user.CallsRemaining, 0)
	}
	assert.Equal(t, 0, user.CallsRemaining)
}
