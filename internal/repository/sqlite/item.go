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

// compile-time check that *DB implements repository.ItemRepository
var _ repository.ItemRepository = (*DB)(nil)

// CreateItem inserts a new item and fills in the generated ID and
// timestamps. This is the embedded backend's id strategy: plain INSERT, then
// the driver's LastInsertId accessor.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (name, description, location, image_path, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name,
		item.Description,
		item.Location,
		item.ImagePath,
		item.UserID,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading generated item id: %w", err)
	}
	item.ID = id

	return nil
}

// GetItem retrieves a single item by its ID.
func (db *DB) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var (
		item  model.Item
		image sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, location, image_path, user_id, created_at, updated_at
		 FROM items WHERE id = ?`,
		id,
	).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Location,
		&image,
		&item.UserID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("item", id)
		}
		return nil, fmt.Errorf("sqlite: getting item %d: %w", id, err)
	}

	if image.Valid {
		item.ImagePath = &image.String
	}
	return &item, nil
}

// ListItems returns all items joined with their owner's profile fields,
// newest first. A non-empty search filters by substring match on name,
// description, owner name, or location — SQLite's LIKE is case-insensitive
// for ASCII, which matches the search semantics we want.
func (db *DB) ListItems(ctx context.Context, search string) ([]model.Listing, error) {
	const baseQuery = `
		SELECT items.id, items.name, items.description, items.location,
		       items.image_path, items.user_id, items.created_at, items.updated_at,
		       users.full_name, users.email, users.avatar_url
		FROM items
		JOIN users ON items.user_id = users.id`
	const order = ` ORDER BY items.created_at DESC, items.id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if search != "" {
		pattern := "%" + search + "%"
		rows, err = db.conn.QueryContext(ctx,
			baseQuery+` WHERE items.name LIKE ? OR items.description LIKE ?
			            OR users.full_name LIKE ? OR items.location LIKE ?`+order,
			pattern, pattern, pattern, pattern,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx, baseQuery+order)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	listings := make([]model.Listing, 0)
	for rows.Next() {
		var (
			l             model.Listing
			image, avatar sql.NullString
		)
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Description, &l.Location,
			&image, &l.UserID, &l.CreatedAt, &l.UpdatedAt,
			&l.OwnerName, &l.OwnerContact, &avatar,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning listing row: %w", err)
		}
		if image.Valid {
			l.ImagePath = &image.String
		}
		if avatar.Valid {
			l.OwnerAvatar = &avatar.String
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating listings: %w", err)
	}

	return listings, nil
}

// UpdateItem rewrites the item's mutable fields and stamps updated_at.
// RowsAffected detects a vanished row — no separate existence query.
func (db *DB) UpdateItem(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE items
		 SET name = ?, description = ?, location = ?, image_path = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.Description,
		item.Location,
		item.ImagePath,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %d: %w", item.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("item", item.ID)
	}

	return nil
}

// DeleteItem removes an item by its ID.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM items WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("item", id)
	}

	return nil
}
