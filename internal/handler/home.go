package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/propsdb/internal/auth"
)

// HomeHandler serves the single-page app shell. Templates are parsed once
// at construction and reused for every request.
type HomeHandler struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewHomeHandler parses the HTML templates from templateDir. The shell is
// one page; everything dynamic happens through the JSON API.
func NewHomeHandler(templateDir string, logger *slog.Logger) (*HomeHandler, error) {
	tmpl, err := template.ParseFiles(filepath.Join(templateDir, "index.html"))
	if err != nil {
		return nil, err
	}

	return &HomeHandler{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// HandleHome renders the app shell.
//
// HTTP: GET /
//
// When a session exists the page embeds the CSRF token, so the frontend can
// send it back on mutations without an extra round trip.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":     "Props Database",
		"LoggedIn":  false,
		"CSRFToken": "",
	}
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		data["LoggedIn"] = true
		data["CSRFToken"] = session.CSRFToken
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("failed to render home page", slog.String("error", err.Error()))
	}
}
