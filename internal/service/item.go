package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/model"
	"github.com/sakif/propsdb/internal/repository"
)

// Validation limits for listing fields.
const (
	MaxNameLength        = 200
	MaxLocationLength    = 200
	MaxDescriptionLength = 10000
)

// AssetStore is the slice of the asset layer the item service needs. The
// concrete implementation is assets.Store; tests inject an in-memory fake.
type AssetStore interface {
	Save(filename string, r io.Reader) (string, error)
	Replace(oldName, filename string, r io.Reader) (string, error)
	Remove(name string) error
}

// Upload is an image file attached to a create/update request.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// ItemService owns the listing rules: field validation, ownership
// authorization, and keeping the asset store in step with the rows.
type ItemService struct {
	items  repository.ItemRepository
	assets AssetStore
	logger *slog.Logger
}

// NewItemService creates an ItemService.
func NewItemService(items repository.ItemRepository, assets AssetStore, logger *slog.Logger) *ItemService {
	return &ItemService{
		items:  items,
		assets: assets,
		logger: logger,
	}
}

// List returns all listings, newest first, optionally filtered by the
// search string. IsOwner is computed here against the requester's id —
// requesterID 0 means anonymous, so every flag stays false.
func (s *ItemService) List(ctx context.Context, search string, requesterID int64) ([]model.Listing, error) {
	listings, err := s.items.ListItems(ctx, strings.TrimSpace(search))
	if err != nil {
		s.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing items: %w", err)
	}

	for i := range listings {
		listings[i].IsOwner = requesterID != 0 && listings[i].UserID == requesterID
	}

	return listings, nil
}

// Create validates and saves a new listing for ownerID, storing the image
// first when one is attached.
//
// Validation runs before anything is written — a listing with a blank name
// or location must not leave an image file behind either. The image write
// does precede the row insert (a crash in between orphans a file, never a
// row with a dangling image_path).
func (s *ItemService) Create(ctx context.Context, ownerID int64, name, description, location string, upload *Upload) (*model.Item, error) {
	name, description, location = strings.TrimSpace(name), strings.TrimSpace(description), strings.TrimSpace(location)

	if err := validateFields(name, description, location); err != nil {
		return nil, err
	}

	item := &model.Item{
		Name:        name,
		Description: description,
		Location:    location,
		UserID:      ownerID,
	}

	if upload != nil {
		stored, err := s.assets.Save(upload.Filename, upload.Reader)
		if err != nil {
			return nil, fmt.Errorf("storing item image: %w", err)
		}
		item.ImagePath = &stored
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.Int64("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.Int64("id", item.ID),
		slog.Int64("ownerID", ownerID),
	)

	return item, nil
}

// Update validates and rewrites an existing listing.
//
// CHECK ORDER MATTERS:
// Existence is checked before ownership, so a caller probing a nonexistent
// id always learns "not found" and never "forbidden". Then ownership, then
// field validation — a non-owner gets 403 even with garbage fields.
//
// A new upload replaces the stored image: the new file is saved first, then
// the old one is deleted. No upload means the existing image is kept as-is.
func (s *ItemService) Update(ctx context.Context, itemID, requesterID int64, name, description, location string, upload *Upload) (*model.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.UserID != requesterID {
		return nil, apperror.Forbidden("you can only edit your own items")
	}

	name, description, location = strings.TrimSpace(name), strings.TrimSpace(description), strings.TrimSpace(location)
	if err := validateFields(name, description, location); err != nil {
		return nil, err
	}

	if upload != nil {
		oldName := ""
		if item.ImagePath != nil {
			oldName = *item.ImagePath
		}
		stored, err := s.assets.Replace(oldName, upload.Filename, upload.Reader)
		if err != nil {
			return nil, fmt.Errorf("replacing item image: %w", err)
		}
		item.ImagePath = &stored
	}

	item.Name = name
	item.Description = description
	item.Location = location

	if err := s.items.UpdateItem(ctx, item); err != nil {
		s.logger.Error("failed to update item",
			slog.Int64("id", itemID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating item: %w", err)
	}

	s.logger.Info("item updated", slog.Int64("id", item.ID))

	return item, nil
}

// Delete removes a listing and its image file. Same existence-then-ownership
// order as Update. The file goes first; deleting a listing with no image is
// fine, and so is a file already missing from disk.
func (s *ItemService) Delete(ctx context.Context, itemID, requesterID int64) error {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	if item.UserID != requesterID {
		return apperror.Forbidden("you can only delete your own items")
	}

	if item.ImagePath != nil {
		if err := s.assets.Remove(*item.ImagePath); err != nil {
			return fmt.Errorf("removing item image: %w", err)
		}
	}

	if err := s.items.DeleteItem(ctx, itemID); err != nil {
		s.logger.Error("failed to delete item",
			slog.Int64("id", itemID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted", slog.Int64("id", itemID))
	return nil
}

func validateFields(name, description, location string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "item name is required")
	}
	if len(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("item name must be %d characters or less", MaxNameLength))
	}
	if location == "" {
		return apperror.ValidationFailed("location", "location is required")
	}
	if len(location) > MaxLocationLength {
		return apperror.ValidationFailed("location",
			fmt.Sprintf("location must be %d characters or less", MaxLocationLength))
	}
	if len(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}
