package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/model"
)

// mockItemRepo is an in-memory repository.ItemRepository. Hand-written
// rather than generated: the service tests care about which calls happen,
// and a map plus a counter is all that takes.
type mockItemRepo struct {
	items  map[int64]*model.Item
	owners map[int64]string // user id → owner name, for listings
	nextID int64
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{
		items:  make(map[int64]*model.Item),
		owners: make(map[int64]string),
	}
}

func (m *mockItemRepo) CreateItem(_ context.Context, item *model.Item) error {
	m.nextID++
	item.ID = m.nextID
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockItemRepo) GetItem(_ context.Context, id int64) (*model.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("item", id)
	}
	result := *item
	return &result, nil
}

func (m *mockItemRepo) ListItems(_ context.Context, search string) ([]model.Listing, error) {
	result := make([]model.Listing, 0, len(m.items))
	for _, item := range m.items {
		if search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(search)) {
			continue
		}
		result = append(result, model.Listing{
			Item:      *item,
			OwnerName: m.owners[item.UserID],
		})
	}
	return result, nil
}

func (m *mockItemRepo) UpdateItem(_ context.Context, item *model.Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return apperror.NotFound("item", item.ID)
	}
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockItemRepo) DeleteItem(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return apperror.NotFound("item", id)
	}
	delete(m.items, id)
	return nil
}

// mockAssetStore records calls so tests can assert the image lifecycle
// (saved on create, replaced on update, removed on delete).
type mockAssetStore struct {
	saved    []string
	replaced [][2]string // old name, new upload filename
	removed  []string
	saveErr  error
}

func (m *mockAssetStore) Save(filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, filename)
	return "stored_" + filename, nil
}

func (m *mockAssetStore) Replace(oldName, filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.replaced = append(m.replaced, [2]string{oldName, filename})
	return "stored_" + filename, nil
}

func (m *mockAssetStore) Remove(name string) error {
	m.removed = append(m.removed, name)
	return nil
}

func newTestItemService(t *testing.T) (*ItemService, *mockItemRepo, *mockAssetStore) {
	t.Helper()
	repo := newMockItemRepo()
	assets := &mockAssetStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewItemService(repo, assets, logger), repo, assets
}

// seedItem puts an item straight into the mock, bypassing the service.
func seedItem(t *testing.T, repo *mockItemRepo, ownerID int64, name string, imagePath *string) *model.Item {
	t.Helper()
	item := &model.Item{Name: name, Location: "somewhere", UserID: ownerID, ImagePath: imagePath}
	if err := repo.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
	return item
}

func TestItemCreate(t *testing.T) {
	svc, repo, _ := newTestItemService(t)

	item, err := svc.Create(context.Background(), 1, "  Armchair  ", "velvet", "Warehouse B", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if item.ID == 0 {
		t.Error("Create() did not assign an id")
	}
	if item.Name != "Armchair" {
		t.Errorf("Name = %q, want whitespace trimmed", item.Name)
	}
	if _, ok := repo.items[item.ID]; !ok {
		t.Error("Create() did not persist the item")
	}
}

func TestItemCreate_WithImage(t *testing.T) {
	svc, repo, assets := newTestItemService(t)

	upload := &Upload{Filename: "chair.png", Reader: strings.NewReader("fake png")}
	item, err := svc.Create(context.Background(), 1, "Chair", "", "Rack 1", upload)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if item.ImagePath == nil || *item.ImagePath != "stored_chair.png" {
		t.Errorf("ImagePath = %v, want stored name from asset store", item.ImagePath)
	}
	if stored := repo.items[item.ID]; stored.ImagePath == nil {
		t.Error("stored item lost its image path")
	}
	if len(assets.saved) != 1 {
		t.Errorf("asset store saw %d saves, want 1", len(assets.saved))
	}
}

func TestItemCreate_Validation(t *testing.T) {
	svc, repo, assets := newTestItemService(t)

	tests := []struct {
		name     string
		itemName string
		desc     string
		location string
	}{
		{"empty name", "", "desc", "loc"},
		{"whitespace name", "   ", "desc", "loc"},
		{"name too long", strings.Repeat("x", MaxNameLength+1), "desc", "loc"},
		{"empty location", "name", "desc", ""},
		{"location too long", "name", "desc", strings.Repeat("x", MaxLocationLength+1)},
		{"description too long", "name", strings.Repeat("x", MaxDescriptionLength+1), "loc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := &Upload{Filename: "a.png", Reader: strings.NewReader("x")}
			_, err := svc.Create(context.Background(), 1, tt.itemName, tt.desc, tt.location, upload)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}

	// Rejected requests must not leave rows or files behind.
	if len(repo.items) != 0 {
		t.Errorf("%d items persisted from invalid requests", len(repo.items))
	}
	if len(assets.saved) != 0 {
		t.Errorf("%d images saved from invalid requests", len(assets.saved))
	}
}

func TestItemCreate_AssetStoreFailure(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	assets.saveErr = errors.New("disk full")

	upload := &Upload{Filename: "a.png", Reader: strings.NewReader("x")}
	_, err := svc.Create(context.Background(), 1, "name", "", "loc", upload)
	if err == nil {
		t.Fatal("Create() should surface the asset store failure")
	}
	if len(repo.items) != 0 {
		t.Error("item persisted despite the image write failing")
	}
}

func TestItemList_OwnershipFlag(t *testing.T) {
	svc, repo, _ := newTestItemService(t)
	seedItem(t, repo, 1, "mine", nil)
	seedItem(t, repo, 2, "theirs", nil)

	listings, err := svc.List(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	for _, l := range listings {
		if want := l.UserID == 1; l.IsOwner != want {
			t.Errorf("item %q: IsOwner = %v, want %v", l.Name, l.IsOwner, want)
		}
	}
}

func TestItemList_AnonymousNeverOwns(t *testing.T) {
	svc, repo, _ := newTestItemService(t)
	// UserID 0 in storage must not read as "owned by anonymous".
	seedItem(t, repo, 0, "odd row", nil)

	listings, err := svc.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, l := range listings {
		if l.IsOwner {
			t.Error("anonymous request flagged a listing as owned")
		}
	}
}

func TestItemUpdate(t *testing.T) {
	svc, repo, _ := newTestItemService(t)
	seeded := seedItem(t, repo, 1, "old", nil)

	updated, err := svc.Update(context.Background(), seeded.ID, 1, "new", "desc", "new loc", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "new" || updated.Location != "new loc" {
		t.Errorf("got %q at %q, want new at new loc", updated.Name, updated.Location)
	}
}

func TestItemUpdate_NotFoundBeforeForbidden(t *testing.T) {
	svc, _, _ := newTestItemService(t)

	// Nonexistent id: not found, regardless of who asks.
	_, err := svc.Update(context.Background(), 404, 1, "n", "", "l", nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestItemUpdate_NonOwnerForbidden(t *testing.T) {
	svc, repo, _ := newTestItemService(t)
	seeded := seedItem(t, repo, 1, "alice's", nil)

	// Ownership is checked before validation: even garbage fields get 403.
	_, err := svc.Update(context.Background(), seeded.ID, 2, "", "", "", nil)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() error = %v, want ErrForbidden", err)
	}

	if repo.items[seeded.ID].Name != "alice's" {
		t.Error("non-owner update modified the item")
	}
}

func TestItemUpdate_ReplacesImage(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	old := "old_image.png"
	seeded := seedItem(t, repo, 1, "lamp", &old)

	upload := &Upload{Filename: "new.jpg", Reader: strings.NewReader("jpg")}
	updated, err := svc.Update(context.Background(), seeded.ID, 1, "lamp", "", "shelf", upload)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.ImagePath == nil || *updated.ImagePath != "stored_new.jpg" {
		t.Errorf("ImagePath = %v, want the replacement", updated.ImagePath)
	}
	if len(assets.replaced) != 1 || assets.replaced[0] != [2]string{"old_image.png", "new.jpg"} {
		t.Errorf("replace calls = %v, want old_image.png → new.jpg", assets.replaced)
	}
}

func TestItemUpdate_KeepsImageWithoutUpload(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	old := "keep_me.png"
	seeded := seedItem(t, repo, 1, "lamp", &old)

	updated, err := svc.Update(context.Background(), seeded.ID, 1, "lamp", "", "shelf", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.ImagePath == nil || *updated.ImagePath != "keep_me.png" {
		t.Errorf("ImagePath = %v, want existing image untouched", updated.ImagePath)
	}
	if len(assets.replaced) != 0 || len(assets.removed) != 0 {
		t.Error("update without upload touched the asset store")
	}
}

func TestItemDelete(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	image := "doomed.png"
	seeded := seedItem(t, repo, 1, "doomed", &image)

	if err := svc.Delete(context.Background(), seeded.ID, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, ok := repo.items[seeded.ID]; ok {
		t.Error("Delete() left the item in the repository")
	}
	if len(assets.removed) != 1 || assets.removed[0] != "doomed.png" {
		t.Errorf("removed = %v, want the item's image", assets.removed)
	}
}

func TestItemDelete_NoImage(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	seeded := seedItem(t, repo, 1, "plain", nil)

	if err := svc.Delete(context.Background(), seeded.ID, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(assets.removed) != 0 {
		t.Error("Delete() tried to remove an image that was never set")
	}
}

func TestItemDelete_NonOwnerForbidden(t *testing.T) {
	svc, repo, assets := newTestItemService(t)
	image := "safe.png"
	seeded := seedItem(t, repo, 1, "alice's", &image)

	err := svc.Delete(context.Background(), seeded.ID, 2)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}

	if _, ok := repo.items[seeded.ID]; !ok {
		t.Error("non-owner delete removed the item")
	}
	if len(assets.removed) != 0 {
		t.Error("non-owner delete removed the image")
	}
}

func TestItemDelete_NotFound(t *testing.T) {
	svc, _, _ := newTestItemService(t)

	if err := svc.Delete(context.Background(), 404, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
