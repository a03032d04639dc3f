// Package store implements the application's persisted state stores: session,
// friends, chats, and permissions. Each store owns a disjoint slice of the
// key-value namespace and notifies its subscribers after every state change.
//
// Friends and chats records are keyed by the signed-in identity, so signing
// out orphans them without deleting them; signing back in under the same
// identity finds them again.
package store

// Key layout of the persisted state. All values are JSON-encoded except the
// two literal "true" flags.
const (
	keyCredentials  = "auth:credentials"
	keyProfile      = "auth:user"
	keyResetCode    = "auth:resetCode"
	keyOnboarding   = "onboarding:seen"
	keyPermissions  = "permissions:requested"
	friendsKeyStem  = "friends:"
	chatsKeyStem    = "chats:"
	flagTrueLiteral = "true"
)

func friendsKey(userID string) string { return friendsKeyStem + userID }

func chatsKey(userID string) string { return chatsKeyStem + userID }
