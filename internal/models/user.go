// Package models contains data structures for the application's domain models.
package models

import "time"

// LookingFor is the relationship mode a user is searching in.
type LookingFor string

// Relationship-seeking modes.
const (
	LookingForDating  LookingFor = "dating"
	LookingForFriends LookingFor = "friends"
	LookingForGroups  LookingFor = "groups"
)

// Valid reports whether the mode is one of the known values.
func (l LookingFor) Valid() bool {
	switch l {
	case LookingForDating, LookingForFriends, LookingForGroups:
		return true
	}
	return false
}

// GenderPreference narrows who a user wants to be matched with.
type GenderPreference string

// Gender preference values.
const (
	PreferMen       GenderPreference = "men"
	PreferWomen     GenderPreference = "women"
	PreferNonbinary GenderPreference = "nonbinary"
	PreferEveryone  GenderPreference = "everyone"
)

// Valid reports whether the preference is one of the known values.
func (g GenderPreference) Valid() bool {
	switch g {
	case PreferMen, PreferWomen, PreferNonbinary, PreferEveryone:
		return true
	}
	return false
}

// UnlimitedCalls is the quota sentinel stored for premium accounts.
const UnlimitedCalls = 999

// User is the signed-in profile. A premium account treats CallsRemaining as
// unlimited: decrements are no-ops while the flag is set.
type User struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Age              int              `json:"age"`
	Interests        []string         `json:"interests"`
	LookingFor       LookingFor       `json:"lookingFor"`
	LocationEnabled  bool             `json:"locationEnabled"`
	Distance         int              `json:"distance"`
	Email            string           `json:"email"`
	GenderPreference GenderPreference `json:"genderPreference,omitempty"`
	Instagram        string           `json:"instagram,omitempty"`
	Snapchat         string           `json:"snapchat,omitempty"`
	CallsRemaining   int              `json:"callsRemaining"`
	IsPremium        bool             `json:"isPremium"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Credentials is the stored account record. It is the authority for sign-in
// checks and persists independently of the profile. The password is kept as a
// bcrypt hash, never plaintext.
type Credentials struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// ResetCode is a pending password-reset record. Validity is checked against
// its timestamp at reset time; expired records are not actively swept.
type ResetCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}
