package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"pulse/internal/kv"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/observability"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultFreeCalls is the call quota assigned to a freshly completed profile.
const DefaultFreeCalls = 5

// DefaultResetTTL is how long a password-reset code stays valid.
const DefaultResetTTL = 15 * time.Minute

// SessionStore owns the signed-in identity: the credential record, the
// profile, the call quota, and the password-reset flow. All other stores
// derive their storage keys from its identity.
type SessionStore struct {
	kv        kv.Store
	sender    notify.Sender
	log       *observability.StoreLogger
	freeCalls int
	resetTTL  time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	user     *models.User
	watchers []func(*models.User)
}

// SessionOption customizes a SessionStore.
type SessionOption func(*SessionStore)

// WithSender replaces the reset-code delivery channel.
func WithSender(s notify.Sender) SessionOption {
	return func(st *SessionStore) { st.sender = s }
}

// WithFreeCalls overrides the default free-call quota.
func WithFreeCalls(n int) SessionOption {
	return func(st *SessionStore) { st.freeCalls = n }
}

// WithResetTTL overrides the reset-code validity window.
func WithResetTTL(d time.Duration) SessionOption {
	return func(st *SessionStore) { st.resetTTL = d }
}

// WithClock overrides the time source. Tests use this to drive the
// reset-code expiry window.
func WithClock(now func() time.Time) SessionOption {
	return func(st *SessionStore) { st.now = now }
}

// NewSessionStore constructs a session store over the given persistence
// backend. Call Load to hydrate the identity from storage.
func NewSessionStore(store kv.Store, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		kv:        store,
		sender:    notify.LogSender{},
		log:       observability.NewStoreLogger("session"),
		freeCalls: DefaultFreeCalls,
		resetTTL:  DefaultResetTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every identity-affecting operation.
// fn receives the new identity, or nil after sign-out. This replaces the
// navigation-guard re-evaluation of the client: subscribers decide where the
// user lands next.
func (s *SessionStore) Subscribe(fn func(*models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Current returns a copy of the signed-in identity, or nil when absent.
func (s *SessionStore) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Interests = append([]string(nil), u.Interests...)
	return &out
}

// setUser swaps the in-memory identity and notifies subscribers outside the
// lock, so a subscriber may call back into the store.
func (s *SessionStore) setUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	watchers := append([]func(*models.User){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(cloneUser(u))
	}
}

// clearAuthRecords deletes the credential and profile keys. Used both by
// sign-out and by corruption self-heal.
func (s *SessionStore) clearAuthRecords(ctx context.Context) error {
	credErr := s.kv.Delete(ctx, keyCredentials)
	profErr := s.kv.Delete(ctx, keyProfile)
	if credErr != nil {
		return credErr
	}
	return profErr
}

// Load hydrates the in-memory identity from the profile record. A corrupt
// profile clears both auth keys and leaves the identity unset without
// returning an error.
func (s *SessionStore) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, keyProfile)
	if errors.Is(err, kv.ErrNotFound) {
		s.setUser(nil)
		return nil
	}
	if err != nil {
		s.log.LogError(ctx, "load", err)
		return models.NewInternalError(err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.log.LogCorruption(ctx, keyProfile, err)
		_ = s.clearAuthRecords(ctx)
		s.setUser(nil)
		return nil
	}

	s.setUser(&user)
	s.log.LogOp(ctx, "load", map[string]interface{}{"user_id": user.ID})
	return nil
}

// SignUp persists the credential record for a new account. The profile is
// created later, by UpdateProfile, once the user completes profile setup.
func (s *SessionStore) SignUp(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	creds := models.Credentials{Email: email, PasswordHash: string(hash)}
	data, err := json.Marshal(creds)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.kv.Set(ctx, keyCredentials, data); err != nil {
		s.log.LogError(ctx, "signup", err)
		return models.NewInternalError(err)
	}

	s.log.LogOp(ctx, "signup", map[string]interface{}{"email": email})
	return nil
}

// SignIn checks email and password against the stored credential record and,
// on success, hydrates the identity from the profile record. A wrong email or
// password is a plain false, not an error. Corrupt stored records are cleared
// and treated as no account.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (bool, error) {
	data, err := s.kv.Get(ctx, keyCredentials)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.log.LogError(ctx, "signin", err)
		return false, models.NewInternalError(err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.log.LogCorruption(ctx, keyCredentials, err)
		_ = s.clearAuthRecords(ctx)
		return false, nil
	}

	if creds.Email != email {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		return false, nil
	}

	if err := s.Load(ctx); err != nil {
		return false, err
	}
	s.log.LogOp(ctx, "signin", map[string]interface{}{"email": email})
	return true, nil
}

// SignOut clears the credential and profile records. The in-memory identity
// is reset and subscribers are notified even when the clear fails, so the
// caller always ends up on the signed-out path.
func (s *SessionStore) SignOut(ctx context.Context) error {
	err := s.clearAuthRecords(ctx)
	s.setUser(nil)
	if err != nil {
		s.log.LogError(ctx, "signout", err)
		return models.NewInternalError(err)
	}
	s.log.LogOp(ctx, "signout", nil)
	return nil
}

// ProfileInput carries the fields of a first profile completion. Identifier,
// email, quota, and premium status are assigned by the store, never by the
// caller.
type ProfileInput struct {
	Name            string            `json:"name"`
	Age             int               `json:"age"`
	Interests       []string          `json:"interests"`
	LookingFor      models.LookingFor `json:"lookingFor"`
	LocationEnabled bool              `json:"locationEnabled"`
	Distance        int               `json:"distance"`
	Instagram       string            `json:"instagram"`
	Snapchat        string            `json:"snapchat"`
}

// UpdateProfile creates the profile record after signup. It requires an
// existing credential record; a malformed one is deleted together with any
// profile before the error is returned.
func (s *SessionStore) UpdateProfile(ctx context.Context, in ProfileInput) (*models.User, error) {
	data, err := s.kv.Get(ctx, keyCredentials)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, models.NewNotAuthenticatedError()
	}
	if err != nil {
		s.log.LogError(ctx, "update_profile", err)
		return nil, models.NewInternalError(err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.log.LogCorruption(ctx, keyCredentials, err)
		_ = s.clearAuthRecords(ctx)
		return nil, models.NewCorruptRecordError(keyCredentials, err)
	}

	if !in.LookingFor.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown lookingFor value %q", in.LookingFor))
	}

	user := &models.User{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Age:             in.Age,
		Interests:       append([]string(nil), in.Interests...),
		LookingFor:      in.LookingFor,
		LocationEnabled: in.LocationEnabled,
		Distance:        in.Distance,
		Email:           creds.Email,
		Instagram:       in.Instagram,
		Snapchat:        in.Snapchat,
		CallsRemaining:  s.freeCalls,
		IsPremium:       false,
		CreatedAt:       s.now(),
	}

	if err := s.persistUser(ctx, user); err != nil {
		s.log.LogError(ctx, "update_profile", err)
		return nil, err
	}

	s.setUser(user)
	s.log.LogOp(ctx, "update_profile", map[string]interface{}{"user_id": user.ID})
	return cloneUser(user), nil
}

func (s *SessionStore) persistUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.kv.Set(ctx, keyProfile, data); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SettingsPatch is a typed partial profile update. Nil fields are left
// untouched; non-nil fields replace the stored value.
type SettingsPatch struct {
	Name             *string                  `json:"name"`
	Age              *int                     `json:"age"`
	Interests        *[]string                `json:"interests"`
	LookingFor       *models.LookingFor       `json:"lookingFor"`
	LocationEnabled  *bool                    `json:"locationEnabled"`
	Distance         *int                     `json:"distance"`
	GenderPreference *models.GenderPreference `json:"genderPreference"`
	Instagram        *string                  `json:"instagram"`
	Snapchat         *string                  `json:"snapchat"`
}

func (p SettingsPatch) apply(u *models.User) error {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Interests != nil {
		u.Interests = append([]string(nil), *p.Interests...)
	}
	if p.LookingFor != nil {
		if !p.LookingFor.Valid() {
			return models.NewValidationError(fmt.Sprintf("unknown lookingFor value %q", *p.LookingFor))
		}
		u.LookingFor = *p.LookingFor
	}
	if p.LocationEnabled != nil {
		u.LocationEnabled = *p.LocationEnabled
	}
	if p.Distance != nil {
		u.Distance = *p.Distance
	}
	if p.GenderPreference != nil {
		if !p.GenderPreference.Valid() {
			return models.NewValidationError(fmt.Sprintf("unknown genderPreference value %q", *p.GenderPreference))
		}
		u.GenderPreference = *p.GenderPreference
	}
	if p.Instagram != nil {
		u.Instagram = *p.Instagram
	}
	if p.Snapchat != nil {
		u.Snapchat = *p.Snapchat
	}
	return nil
}

// UpdateSettings merges the patch into the stored profile. It requires a
// signed-in identity.
func (s *SessionStore) UpdateSettings(ctx context.Context, patch SettingsPatch) (*models.User, error) {
	return s.transformUser(ctx, "update_settings", patch.apply)
}

// UpdateGenderPreference narrows UpdateSettings to the single preference
// field.
func (s *SessionStore) UpdateGenderPreference(ctx context.Context, pref models.GenderPreference) (*models.User, error) {
	return s.UpdateSettings(ctx, SettingsPatch{GenderPreference: &pref})
}

// DecrementCall consumes one free call. Premium identities are unaffected,
// and the quota never drops below zero. The decrement runs as an atomic
// transform, so two concurrent calls both land.
func (s *SessionStore) DecrementCall(ctx context.Context) (*models.User, error) {
	return s.transformUser(ctx, "decrement_call", func(u *models.User) error {
		if u.IsPremium {
			return nil
		}
		if u.CallsRemaining > 0 {
			u.CallsRemaining--
		}
		return nil
	})
}

// SetPremium flips the premium flag. Enabling it pins the quota to the
// unlimited sentinel; disabling leaves the stored quota untouched.
func (s *SessionStore) SetPremium(ctx context.Context, premium bool) (*models.User, error) {
	return s.transformUser(ctx, "set_premium", func(u *models.User) error {
		u.IsPremium = premium
		if premium {
			u.CallsRemaining = models.UnlimitedCalls
		}
		return nil
	})
}

// transformUser applies fn to the stored profile as an atomic
// read-transform-write, then refreshes the in-memory identity and notifies
// subscribers.
func (s *SessionStore) transformUser(ctx context.Context, op string, fn func(*models.User) error) (*models.User, error) {
	if s.Current() == nil {
		return nil, models.NewNotAuthenticatedError()
	}

	var updated *models.User
	err := s.kv.Update(ctx, keyProfile, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, models.NewNotAuthenticatedError()
		}
		var user models.User
		if err := json.Unmarshal(old, &user); err != nil {
			return nil, models.NewCorruptRecordError(keyProfile, err)
		}
		if err := fn(&user); err != nil {
			return nil, err
		}
		updated = &user
		return json.Marshal(&user)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeCorruptRecord {
			s.log.LogCorruption(ctx, keyProfile, appErr.Err)
			_ = s.clearAuthRecords(ctx)
			s.setUser(nil)
			return nil, err
		}
		s.log.LogError(ctx, op, err)
		return nil, err
	}

	s.setUser(updated)
	s.log.LogOp(ctx, op, map[string]interface{}{"user_id": updated.ID})
	return cloneUser(updated), nil
}

// SendResetCode generates a 6-digit reset code for the account, persists it
// with a timestamp, and hands it to the configured sender. It reports whether
// an account with that email exists.
func (s *SessionStore) SendResetCode(ctx context.Context, email string) (bool, error) {
	data, err := s.kv.Get(ctx, keyCredentials)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.log.LogError(ctx, "send_reset_code", err)
		return false, models.NewInternalError(err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.log.LogCorruption(ctx, keyCredentials, err)
		_ = s.clearAuthRecords(ctx)
		return false, nil
	}
	if creds.Email != email {
		return false, nil
	}

	code, err := generateResetCode()
	if err != nil {
		return false, models.NewInternalError(err)
	}

	record := models.ResetCode{Email: email, Code: code, CreatedAt: s.now()}
	encoded, err := json.Marshal(record)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if err := s.kv.Set(ctx, keyResetCode, encoded); err != nil {
		s.log.LogError(ctx, "send_reset_code", err)
		return false, models.NewInternalError(err)
	}

	if err := s.sender.SendResetCode(ctx, email, code); err != nil {
		s.log.LogError(ctx, "send_reset_code", err)
		return false, models.NewInternalError(err)
	}

	s.log.LogOp(ctx, "send_reset_code", map[string]interface{}{"email": email})
	return true, nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResetPassword validates the pending reset record and, when email and code
// match inside the validity window, replaces the stored password. The reset
// record is deleted on success. Every validation failure is a plain false.
func (s *SessionStore) ResetPassword(ctx context.Context, email, code, newPassword string) (bool, error) {
	data, err := s.kv.Get(ctx, keyResetCode)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.log.LogError(ctx, "reset_password", err)
		return false, models.NewInternalError(err)
	}

	var record models.ResetCode
	if err := json.Unmarshal(data, &record); err != nil {
		s.log.LogCorruption(ctx, keyResetCode, err)
		_ = s.kv.Delete(ctx, keyResetCode)
		return false, nil
	}

	if s.now().Sub(record.CreatedAt) > s.resetTTL {
		return false, nil
	}
	if record.Email != email || record.Code != code {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, models.NewInternalError(err)
	}

	missing := false
	var corrupt error
	err = s.kv.Update(ctx, keyCredentials, func(old []byte) ([]byte, error) {
		if old == nil {
			missing = true
			return nil, models.NewNotFoundError("Credentials", email)
		}
		var creds models.Credentials
		if err := json.Unmarshal(old, &creds); err != nil {
			corrupt = err
			return nil, models.NewCorruptRecordError(keyCredentials, err)
		}
		creds.PasswordHash = string(hash)
		return json.Marshal(creds)
	})
	if missing {
		return false, nil
	}
	if corrupt != nil {
		s.log.LogCorruption(ctx, keyCredentials, corrupt)
		_ = s.clearAuthRecords(ctx)
		return false, nil
	}
	if err != nil {
		s.log.LogError(ctx, "reset_password", err)
		return false, models.NewInternalError(err)
	}

	if err := s.kv.Delete(ctx, keyResetCode); err != nil {
		s.log.LogError(ctx, "reset_password", err)
		return false, models.NewInternalError(err)
	}

	s.log.LogOp(ctx, "reset_password", map[string]interface{}{"email": email})
	return true, nil
}

// MarkOnboardingSeen records that the intro flow has been completed.
func (s *SessionStore) MarkOnboardingSeen(ctx context.Context) error {
	if err := s.kv.Set(ctx, keyOnboarding, []byte(flagTrueLiteral)); err != nil {
		s.log.LogError(ctx, "mark_onboarding", err)
		return models.NewInternalError(err)
	}
	return nil
}

// HasSeenOnboarding reports whether the intro flow was completed before.
func (s *SessionStore) HasSeenOnboarding(ctx context.Context) (bool, error) {
	data, err := s.kv.Get(ctx, keyOnboarding)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return string(data) == flagTrueLiteral, nil
}
