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

// compile-time check that *DB implements repository.ItemRepository
var _ repository.ItemRepository = (*DB)(nil)

// CreateItem inserts a new item. The networked backend's id strategy:
// INSERT .. RETURNING fills the generated id and the server-side timestamps
// in the same round trip.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO items (name, description, location, image_path, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		item.Name,
		item.Description,
		item.Location,
		item.ImagePath,
		item.UserID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating item: %w", err)
	}

	return nil
}

// GetItem retrieves a single item by its ID.
func (db *DB) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item

	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, location, image_path, user_id, created_at, updated_at
		 FROM items WHERE id = $1`,
		id,
	).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Location,
		&item.ImagePath,
		&item.UserID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("item", id)
		}
		return nil, fmt.Errorf("postgres: getting item %d: %w", id, err)
	}

	return &item, nil
}

// ListItems returns all items joined with their owner's profile fields,
// newest first. ILIKE gives the case-insensitive substring match across
// name, description, owner name, and location.
func (db *DB) ListItems(ctx context.Context, search string) ([]model.Listing, error) {
	const baseQuery = `
		SELECT items.id, items.name, items.description, items.location,
		       items.image_path, items.user_id, items.created_at, items.updated_at,
		       users.full_name, users.email, users.avatar_url
		FROM items
		JOIN users ON items.user_id = users.id`
	const order = ` ORDER BY items.created_at DESC, items.id DESC`

	var (
		rows pgx.Rows
		err  error
	)
	if search != "" {
		pattern := "%" + search + "%"
		rows, err = db.pool.Query(ctx,
			baseQuery+` WHERE items.name ILIKE $1 OR items.description ILIKE $1
			            OR users.full_name ILIKE $1 OR items.location ILIKE $1`+order,
			pattern,
		)
	} else {
		rows, err = db.pool.Query(ctx, baseQuery+order)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: listing items: %w", err)
	}
	defer rows.Close()

	listings := make([]model.Listing, 0)
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Description, &l.Location,
			&l.ImagePath, &l.UserID, &l.CreatedAt, &l.UpdatedAt,
			&l.OwnerName, &l.OwnerContact, &l.OwnerAvatar,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning listing row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating listings: %w", err)
	}

	return listings, nil
}

// UpdateItem rewrites the item's mutable fields; updated_at is stamped
// server-side and read back so the caller sees the stored value.
func (db *DB) UpdateItem(ctx context.Context, item *model.Item) error {
	err := db.pool.QueryRow(ctx,
		`UPDATE items
		 SET name = $1, description = $2, location = $3, image_path = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING updated_at`,
		item.Name,
		item.Description,
		item.Location,
		item.ImagePath,
		item.ID,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("item", item.ID)
		}
		return fmt.Errorf("postgres: updating item %d: %w", item.ID, err)
	}

	return nil
}

// DeleteItem removes an item by its ID.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("item", id)
	}

	return nil
}
