// Package auth provides the OAuth provider registry, signed session tokens,
// and the auth/CSRF middleware.
//
// SESSION MODEL:
// Sessions are stateless: everything a request needs — the local user id,
// display name, avatar, the per-session CSRF token, and the persistent
// flag — travels inside a signed HS256 JWT stored in an HttpOnly cookie.
// The server validates the signature and expiry on every request; it never
// trusts the cookie's content without the signature, and it keeps no
// server-side session table.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/propsdb/internal/model"
)

// CookieName is the session cookie's name.
const CookieName = "session"

// SessionLifetime caps how long a session token is valid. Persistent
// sessions get a cookie with this max age; non-persistent ones get a
// browser-session cookie, but the token itself still expires.
const SessionLifetime = 7 * 24 * time.Hour

const issuer = "propsdb"

// Session is the validated per-request session state. Handlers receive it
// through the request context — there is no global session object.
type Session struct {
	UserID     int64
	FullName   string
	AvatarURL  *string
	CSRFToken  string
	Persistent bool
}

// SessionService signs and validates session tokens.
type SessionService struct {
	secret []byte
}

// NewSessionService creates a SessionService with the given signing secret.
// The secret should be at least 32 bytes of random data in production:
// SESSION_SECRET=$(openssl rand -hex 32)
func NewSessionService(secret string) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &SessionService{secret: []byte(secret)}, nil
}

// sessionClaims is the JWT payload. Subject carries the local user id; the
// rest is the session state listed on Session.
type sessionClaims struct {
	jwt.RegisteredClaims
	FullName   string  `json:"name"`
	AvatarURL  *string `json:"avatar,omitempty"`
	CSRFToken  string  `json:"csrf"`
	Persistent bool    `json:"persistent,omitempty"`
}

// Issue creates a signed session token for the given user, minting a fresh
// CSRF token. The CSRF token is crypto-random and stays stable for the
// session's lifetime — the frontend echoes it back on every mutation.
func (s *SessionService) Issue(user *model.User, persistent bool) (string, *Session, error) {
	csrf, err := newCSRFToken()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionLifetime)),
		},
		FullName:   user.FullName,
		AvatarURL:  user.AvatarURL,
		CSRFToken:  csrf,
		Persistent: persistent,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing session token: %w", err)
	}

	return signed, &Session{
		UserID:     user.ID,
		FullName:   user.FullName,
		AvatarURL:  user.AvatarURL,
		CSRFToken:  csrf,
		Persistent: persistent,
	}, nil
}

// Validate parses and verifies a session token string.
//
// Checks performed by the jwt library: signature, expiry, issuer, and that
// the algorithm is HS256 (jwt.WithValidMethods closes the algorithm
// confusion hole where a token claims "none").
func (s *SessionService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: session expired")
		}
		return nil, fmt.Errorf("auth: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid session claims")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: session has an invalid subject")
	}
	if claims.CSRFToken == "" {
		return nil, fmt.Errorf("auth: session has no csrf token")
	}

	return &Session{
		UserID:     userID,
		FullName:   claims.FullName,
		AvatarURL:  claims.AvatarURL,
		CSRFToken:  claims.CSRFToken,
		Persistent: claims.Persistent,
	}, nil
}

// newCSRFToken returns 32 bytes of crypto-random data, URL-safe encoded.
func newCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
