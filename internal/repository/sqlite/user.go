package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/model"
	"github.com/sakif/propsdb/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertUser inserts or updates a user keyed on (oauth_provider, oauth_id).
//
// ATOMIC UPSERT:
// A single INSERT .. ON CONFLICT DO UPDATE statement, so two concurrent
// first logins of the same identity cannot race into a duplicate row — one
// inserts, the other updates, and both see the same surrogate id. The
// UNIQUE(oauth_provider, oauth_id) constraint is the schema-level backstop.
//
// Profile fields are overwritten unconditionally ("last login wins");
// created_at keeps its original value on the update path. RETURNING is the
// one spot where this backend cannot use LastInsertId, because the conflict
// path does not set last_insert_rowid().
func (db *DB) UpsertUser(ctx context.Context, user *model.User) error {
	now := time.Now()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (oauth_provider, oauth_id, email, full_name, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(oauth_provider, oauth_id) DO UPDATE SET
		 	email      = excluded.email,
		 	full_name  = excluded.full_name,
		 	avatar_url = excluded.avatar_url
		 RETURNING id, created_at`,
		user.OAuthProvider,
		user.OAuthID,
		user.Email,
		user.FullName,
		user.AvatarURL,
		now,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (%s/%s): %w",
			user.OAuthProvider, user.OAuthID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their local ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var (
		u      model.User
		avatar sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, oauth_provider, oauth_id, email, full_name, avatar_url, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.OAuthProvider,
		&u.OAuthID,
		&u.Email,
		&u.FullName,
		&avatar,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	return &u, nil
}
