package auth

import (
	"context"
	"crypto/subtle"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the session value.
type contextKey string

const sessionKey contextKey = "session"

// RequireAuth enforces authentication on protected routes.
//
// It reads the session cookie, validates the signed token, and stores the
// Session in the request context. Missing or invalid token → 401 and the
// chain stops before the handler.
func RequireAuth(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := extractSession(r, sessions)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the session when a valid cookie is present but never
// blocks the request. Used on public routes (the app shell, listing reads)
// where logged-in users see extra state (is_owner, embedded CSRF token) and
// anonymous users still get through.
func OptionalAuth(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, err := extractSession(r, sessions); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey, sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCSRF enforces the double-submit CSRF check on state-mutating verbs.
//
// The request must carry the session's CSRF token in the X-CSRF-Token header
// or the csrf_token form field. Comparison is constant-time — a byte-by-byte
// compare would leak how much of the token matched through response timing.
// Anything missing or mismatched → 403.
//
// Must run after RequireAuth or OptionalAuth so the session is in context;
// a request with no session at all fails the check too.
func RequireCSRF() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
				sess, ok := SessionFromContext(r.Context())
				if !ok || !csrfTokenMatches(r, sess.CSRFToken) {
					w.Header().Set("Content-Type", "application/json")
					http.Error(w, `{"error":"forbidden","message":"CSRF token missing or invalid"}`, http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext retrieves the validated session from the request
// context. Returns (nil, false) for anonymous requests.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// UserIDFromContext is a shorthand for handlers that only need the id.
// Returns (0, false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}

func csrfTokenMatches(r *http.Request, want string) bool {
	got := r.Header.Get("X-CSRF-Token")
	if got == "" {
		got = bodyCSRFToken(r)
	}
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// bodyCSRFToken extracts csrf_token from the request body.
//
// FormValue covers the verbs net/http parses bodies for (POST, PUT, PATCH)
// plus multipart bodies on any verb. A urlencoded DELETE body is the gap:
// ParseForm skips non-POST/PUT/PATCH bodies, so it gets read by hand here.
// DELETE handlers never consume their body, so draining it is safe.
func bodyCSRFToken(r *http.Request) string {
	if tok := r.FormValue("csrf_token"); tok != "" {
		return tok
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Method != http.MethodDelete || ct != "application/x-www-form-urlencoded" {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return vals.Get("csrf_token")
}

// extractSession reads the session cookie and validates it.
func extractSession(r *http.Request, sessions *SessionService) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return nil, err
	}
	return sessions.Validate(cookie.Value)
}
