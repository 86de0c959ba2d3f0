package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/model"
	"github.com/sakif/propsdb/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts or updates a user keyed on (oauth_provider, oauth_id).
//
// A single atomic INSERT .. ON CONFLICT DO UPDATE, so concurrent first
// logins of the same identity serialize on the unique constraint instead of
// racing into duplicate rows. Profile fields are overwritten unconditionally
// ("last login wins"); created_at keeps its original value on the update
// path.
func (db *DB) UpsertUser(ctx context.Context, user *model.User) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (oauth_provider, oauth_id, email, full_name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (oauth_provider, oauth_id) DO UPDATE SET
		 	email      = EXCLUDED.email,
		 	full_name  = EXCLUDED.full_name,
		 	avatar_url = EXCLUDED.avatar_url
		 RETURNING id, created_at`,
		user.OAuthProvider,
		user.OAuthID,
		user.Email,
		user.FullName,
		user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting user (%s/%s): %w",
			user.OAuthProvider, user.OAuthID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their local ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.pool.QueryRow(ctx,
		`SELECT id, oauth_provider, oauth_id, email, full_name, avatar_url, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(
		&u.ID,
		&u.OAuthProvider,
		&u.OAuthID,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}

	return &u, nil
}
