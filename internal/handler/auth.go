package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/propsdb/internal/apperror"
	"github.com/sakif/propsdb/internal/auth"
	"github.com/sakif/propsdb/internal/service"
)

// AuthHandler manages the OAuth login flow and session endpoints.
//
//	HandleLogin       → redirect the browser to the chosen provider
//	HandleCallback    → receive the code, resolve the identity, set the cookie
//	HandleLogout      → clear the session cookie
//	HandleCurrentUser → current identity, or null when anonymous
type AuthHandler struct {
	providers    *auth.Registry
	authService  *service.AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieSecure marks the session
// cookie Secure (HTTPS only) — on in production, off for local dev.
func NewAuthHandler(
	providers *auth.Registry,
	authService *service.AuthService,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		providers:    providers,
		authService:  authService,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleLogin begins the OAuth flow for one provider.
//
// HTTP: GET /login/{provider}
//
// The random state value goes into a short-lived cookie before the redirect;
// the callback verifies the provider echoed the same value. That ties the
// callback to a flow this server started — without it an attacker could
// complete an OAuth flow for their own account inside the victim's browser.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers.Get(r.PathValue("provider"))
	if !ok {
		writeError(w, apperror.ValidationFailed("provider", "invalid provider"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusFound)
}

// HandleCallback completes the OAuth flow.
//
// HTTP: GET /authorize/{provider}?code=xxx&state=yyy
//
// Provider and resolver failures surface their detail with a 400 — the
// caller is mid-login and needs to know why it failed; these messages come
// from the handshake, not from our internals.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers.Get(r.PathValue("provider"))
	if !ok {
		writeError(w, apperror.ValidationFailed("provider", "invalid provider"))
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state missing or mismatched",
			slog.String("provider", provider.Name()),
		)
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user declined on the provider's consent page — back to the app,
	// not an error page.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", provider.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "provider_error",
			Message: "login failed: " + err.Error(),
		})
		return
	}

	result, err := h.authService.ResolveLogin(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: identity resolution failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "provider_error",
			Message: "login failed: " + err.Error(),
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout clears the session cookie unconditionally.
//
// HTTP: POST /api/logout (CSRF-guarded)
//
// Sessions are stateless, so logout is purely client-side: delete the
// cookie. The token stays technically valid until expiry, but the browser
// can no longer send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// currentUserResponse wraps the user so anonymous requests can answer with
// an explicit null instead of a 401.
type currentUserResponse struct {
	User any `json:"user"`
}

// HandleCurrentUser returns the logged-in user's profile, or {"user": null}.
//
// HTTP: GET /api/current-user
//
// Always 200 — this endpoint exists so the frontend can probe auth state on
// load, and a 401 would just be noise in the console. A session whose
// account row has vanished also reads as anonymous.
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, currentUserResponse{User: nil})
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusOK, currentUserResponse{User: nil})
		return
	}

	writeJSON(w, http.StatusOK, currentUserResponse{User: user})
}
