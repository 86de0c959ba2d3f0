package model

import "time"

// Item represents a single classified listing.
//
// Name and Location are required (non-empty after trimming); Description is
// optional. ImagePath is the bare filename of the listing's image in the
// upload directory — nil means no image, and the JSON null carries that
// distinction to the frontend.
//
// UserID is set once at creation and never reassigned. Only the owner may
// mutate or delete the item; reads are public.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImagePath   *string   `json:"image_path"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Listing is the public read model for an item: the row itself joined with
// the owner's display fields, plus the per-request IsOwner flag.
//
// IsOwner is not stored — the repository returns listings with it unset and
// the service computes it against the requesting session's user ID (always
// false for anonymous requests).
type Listing struct {
	Item
	OwnerName    string  `json:"owner_name"`
	OwnerContact string  `json:"owner_contact"`
	OwnerAvatar  *string `json:"owner_avatar"`
	IsOwner      bool    `json:"is_owner"`
}
