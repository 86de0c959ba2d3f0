// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Users never set a password — identity always comes from an external OAuth
// provider (Google, Discord, or Facebook). The true identity key is the
// (OAuthProvider, OAuthID) pair, enforced UNIQUE in both backends; ID is a
// local surrogate key the rest of the app uses as a shorthand.
//
// WHY int64 ID?
// Both backends generate the surrogate key themselves (AUTOINCREMENT in
// SQLite, SERIAL in Postgres), so the natural Go representation is int64.
// Generating IDs in the application would discard the backend's monotonicity
// guarantee for no benefit.
//
// Email and FullName are refreshed on every login ("last login wins") — the
// provider is the source of truth for profile data, not us.
type User struct {
	ID            int64     `json:"id"`
	OAuthProvider string    `json:"provider"`
	OAuthID       string    `json:"-"` // provider-scoped subject, never exposed over the API
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     *string   `json:"avatar_url"` // nil when the provider has no picture
	CreatedAt     time.Time `json:"created_at"`
}
