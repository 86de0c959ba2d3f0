// Package repository defines the storage interfaces implemented by the
// sqlite and postgres backends.
//
// ONE INTERFACE, TWO BACKENDS:
// Each backend owns its own parameter binding (? vs $n) and its own
// generated-id retrieval strategy (LastInsertId vs INSERT .. RETURNING).
// There is deliberately no shared query text and no placeholder rewriting —
// the interface boundary is the only thing the two have in common.
//
// The service layer receives these interfaces, never a concrete backend, so
// tests inject in-memory mocks and main swaps backends by URL scheme.
package repository

import (
	"context"

	"github.com/sakif/propsdb/internal/model"
)

// UserRepository persists local user accounts keyed by their external
// identity.
type UserRepository interface {
	// UpsertUser resolves an external identity to a local account.
	// Keyed on (OAuthProvider, OAuthID): first login inserts a row, every
	// later login overwrites email/full_name/avatar_url in place. On return
	// user.ID and user.CreatedAt are populated. The upsert is atomic with
	// respect to concurrent first logins of the same identity.
	UpsertUser(ctx context.Context, user *model.User) error

	// GetUserByID returns the user with the given local ID.
	// Returns apperror.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// ItemRepository persists item listings.
type ItemRepository interface {
	// CreateItem inserts a new item and populates item.ID and the
	// timestamps from the backend-generated values.
	CreateItem(ctx context.Context, item *model.Item) error

	// GetItem returns the item with the given ID.
	// Returns apperror.ErrNotFound if no such item exists.
	GetItem(ctx context.Context, id int64) (*model.Item, error)

	// ListItems returns all items joined with their owner's display fields,
	// newest first. A non-empty search filters by case-insensitive substring
	// match against item name, description, owner full name, or location
	// (any of the four). IsOwner is left unset — the service computes it.
	ListItems(ctx context.Context, search string) ([]model.Listing, error)

	// UpdateItem rewrites the item's mutable fields and stamps updated_at.
	// Returns apperror.ErrNotFound if the row is gone.
	UpdateItem(ctx context.Context, item *model.Item) error

	// DeleteItem removes the row.
	// Returns apperror.ErrNotFound if no such item exists.
	DeleteItem(ctx context.Context, id int64) error
}

// Store is the full storage surface a backend must provide.
type Store interface {
	UserRepository
	ItemRepository
	Close() error
}
