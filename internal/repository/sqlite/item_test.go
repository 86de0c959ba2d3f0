package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/model"
)

// createTestItem inserts an item for the given owner and fails the test on
// error.
func createTestItem(t *testing.T, db *DB, ownerID int64, name, description, location string) *model.Item {
	t.Helper()
	item := &model.Item{
		Name:        name,
		Description: description,
		Location:    location,
		UserID:      ownerID,
	}
	if err := db.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("failed to create test item: %v", err)
	}
	return item
}

func TestCreateItem(t *testing.T) {
	db := newTestDB(t)
	owner := upsertTestUser(t, db, "google", "sub-1", "Alice")

	image := "20240101_120000_abc.png"
	item := &model.Item{
		Name:        "Victorian armchair",
		Description: "Worn velvet, one wobbly leg",
		Location:    "Warehouse B",
		ImagePath:   &image,
		UserID:      owner.ID,
	}

	if err := db.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}

	if item.ID == 0 {
		t.Error("CreateItem() did not set item.ID")
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("CreateItem() did not set timestamps")
	}
}

func TestCreateItem_UnknownOwner(t *testing.T) {
	db := newTestDB(t)

	item := &model.Item{Name: "orphan", UserID: 12345}
	if err := db.CreateItem(context.Background(), item); err == nil {
		t.Fatal("CreateItem() should fail the foreign key check for an unknown owner")
	}
}

func TestGetItem(t *testing.T) {
	db := newTestDB(t)
	owner := upsertTestUser(t, db, "google", "sub-1", "Alice")
	created := createTestItem(t, db, owner.ID, "lamp", "brass", "shelf 3")

	found, err := db.GetItem(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if found.Name != "lamp" || found.Location != "shelf 3" {
		t.Errorf("got %q at %q, want lamp at shelf 3", found.Name, found.Location)
	}
	if found.ImagePath != nil {
		t.Errorf("ImagePath = %v, want nil for item without image", *found.ImagePath)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetItem(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetItem() error = %v, want ErrNotFound", err)
	}
}

func TestListItems_JoinsOwnerAndOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	owner := upsertTestUser(t, db, "google", "sub-1", "Alice")

	first := createTestItem(t, db, owner.ID, "first", "", "")
	second := createTestItem(t, db, owner.ID, "second", "", "")

	listings, err := db.ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("ListItems() returned %d listings, want 2", len(listings))
	}

	// Newest first; equal timestamps fall back to id order.
	if listings[0].ID != second.ID || listings[1].ID != first.ID {
		t.Errorf("order = [%d, %d], want [%d, %d]",
			listings[0].ID, listings[1].ID, second.ID, first.ID)
	}

	if listings[0].OwnerName != "Alice" {
		t.Errorf("OwnerName = %q, want %q", listings[0].OwnerName, "Alice")
	}
	if listings[0].OwnerContact != "Alice@example.com" {
		t.Errorf("OwnerContact = %q, want owner email", listings[0].OwnerContact)
	}
	if listings[0].IsOwner {
		t.Error("repository must leave IsOwner unset")
	}
}

func TestListItems_Empty(t *testing.T) {
	db := newTestDB(t)

	listings, err := db.ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	// An empty (not nil) slice, so the handler serialises [] instead of null.
	if listings == nil {
		t.Error("ListItems() returned nil, want empty slice")
	}
	if len(listings) != 0 {
		t.Errorf("ListItems() returned %d listings, want 0", len(listings))
	}
}

func TestListItems_Search(t *testing.T) {
	db := newTestDB(t)
	alice := upsertTestUser(t, db, "google", "sub-1", "Alice Smith")
	bob := upsertTestUser(t, db, "discord", "sub-2", "Bob Jones")

	createTestItem(t, db, alice.ID, "Antique sword", "stage prop, blunt", "Rack 1")
	createTestItem(t, db, alice.ID, "Top hat", "black felt", "Costume loft")
	createTestItem(t, db, bob.ID, "Candelabra", "holds five candles", "Rack 2")

	tests := []struct {
		name      string
		search    string
		wantNames []string
	}{
		{"matches item name", "sword", []string{"Antique sword"}},
		{"matches description", "candles", []string{"Candelabra"}},
		{"matches location", "loft", []string{"Top hat"}},
		{"matches owner name", "Bob", []string{"Candelabra"}},
		{"case-insensitive", "SWORD", []string{"Antique sword"}},
		{"substring across rows", "Rack", []string{"Candelabra", "Antique sword"}},
		{"no match", "spaceship", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := db.ListItems(context.Background(), tt.search)
			if err != nil {
				t.Fatalf("ListItems(%q) error = %v", tt.search, err)
			}
			if len(listings) != len(tt.wantNames) {
				t.Fatalf("ListItems(%q) returned %d listings, want %d",
					tt.search, len(listings), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if listings[i].Name != want {
					t.Errorf("listings[%d].Name = %q, want %q", i, listings[i].Name, want)
				}
			}
		})
	}
}

func TestUpdateItem(t *testing.T) {
	db := newTestDB(t)
	owner := upsertTestUser(t, db, "google", "sub-1", "Alice")
	item := createTestItem(t, db, owner.ID, "old name", "old desc", "old loc")

	image := "20240101_120000_xyz.jpg"
	item.Name = "new name"
	item.Description = "new desc"
	item.Location = "new loc"
	item.ImagePath = &image

	if err := db.UpdateItem(context.Background(), item); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}

	stored, err := db.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if stored.Name != "new name" || stored.Description != "new desc" || stored.Location != "new loc" {
		t.Errorf("update did not persist: got %q/%q/%q", stored.Name, stored.Description, stored.Location)
	}
	if stored.ImagePath == nil || *stored.ImagePath != image {
		t.Errorf("ImagePath = %v, want %q", stored.ImagePath, image)
	}
	if stored.UpdatedAt.Before(stored.CreatedAt) {
		t.Error("UpdatedAt not stamped on update")
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateItem(context.Background(), &model.Item{ID: 404, Name: "ghost"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateItem() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteItem(t *testing.T) {
	db := newTestDB(t)
	owner := upsertTestUser(t, db, "google", "sub-1", "Alice")
	item := createTestItem(t, db, owner.ID, "doomed", "", "")

	if err := db.DeleteItem(context.Background(), item.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}

	if _, err := db.GetItem(context.Background(), item.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetItem() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteItem_NotFound(t *testing.T) {
	db := newTestDB(t)

	if err := db.DeleteItem(context.Background(), 404); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteItem() error = %v, want ErrNotFound", err)
	}
}
