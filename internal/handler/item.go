package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/auth"
	"github.com/sakif/propsdb/internal/service"
)

// maxUploadMemory caps how much of a multipart body is buffered in memory
// before spilling to temp files. 32MB matches net/http's own default.
const maxUploadMemory = 32 << 20

// ItemHandler exposes the listing CRUD endpoints. All the interesting rules
// (validation, ownership, image lifecycle) live in the service — handlers
// only translate HTTP to service calls and back.
type ItemHandler struct {
	items  *service.ItemService
	logger *slog.Logger
}

func NewItemHandler(items *service.ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// HandleList returns all listings, optionally filtered by a search term.
//
// HTTP: GET /api/items?search=xxx
//
// Public endpoint. When a session is present each listing's is_owner flag
// reflects it, so the frontend knows which cards get edit controls.
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	// Anonymous callers read as userID 0, which never matches a real owner.
	userID, _ := auth.UserIDFromContext(r.Context())

	listings, err := h.items.List(r.Context(), r.URL.Query().Get("search"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// HandleCreate adds a new listing for the logged-in user.
//
// HTTP: POST /api/items (auth + CSRF, multipart/form-data)
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid multipart form"))
		return
	}

	upload, closeUpload, err := formUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeUpload()

	item, err := h.items.Create(r.Context(), userID,
		r.FormValue("name"),
		r.FormValue("description"),
		r.FormValue("location"),
		upload,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Item added successfully",
		"id":      item.ID,
	})
}

// HandleUpdate edits an existing listing owned by the logged-in user.
//
// HTTP: PUT /api/items/{id} (auth + CSRF, multipart/form-data)
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	itemID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid multipart form"))
		return
	}

	upload, closeUpload, err := formUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeUpload()

	item, err := h.items.Update(r.Context(), itemID, userID,
		r.FormValue("name"),
		r.FormValue("description"),
		r.FormValue("location"),
		upload,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Item updated successfully",
		"id":      item.ID,
	})
}

// HandleDelete removes a listing owned by the logged-in user, along with
// its stored image.
//
// HTTP: DELETE /api/items/{id} (auth + CSRF)
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	itemID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.items.Delete(r.Context(), itemID, userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

// pathID parses the {id} route segment. A non-numeric id is a client error,
// not a 404 — /api/items/abc never named a resource to begin with.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "invalid item id")
	}
	return id, nil
}

// formUpload extracts the optional "image" file from a parsed multipart
// form. A request without the field simply has no upload, which is not an
// error. Same for an empty filename: browsers send an empty file part when
// the picker was left untouched. Callers always defer the returned cleanup.
func formUpload(r *http.Request) (*service.Upload, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, apperror.ValidationFailed("image", "invalid image upload")
	}
	if header.Filename == "" {
		file.Close()
		return nil, noop, nil
	}
	return &service.Upload{Filename: header.Filename, Reader: file}, func() { file.Close() }, nil
}
