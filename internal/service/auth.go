// Package service contains the business logic layer: identity resolution and
// listing rules live here, between the HTTP handlers and the repositories.
// Services know nothing about HTTP; handlers know nothing about SQL.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/propsdb/internal/auth"
	"github.com/sakif/propsdb/internal/model"
	"github.com/sakif/propsdb/internal/repository"
)

// AuthService resolves external identities to local accounts and issues
// sessions for them.
type AuthService struct {
	users    repository.UserRepository
	sessions *auth.SessionService
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	sessions *auth.SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// LoginResult bundles everything the callback handler needs: the resolved
// user, the signed session token for the cookie, and the decoded session
// (whose CSRF token the frontend will need).
type LoginResult struct {
	User    *model.User
	Token   string
	Session *auth.Session
}

// ResolveLogin maps a completed OAuth exchange to a local user and issues a
// session for them.
//
// The upsert is keyed on (provider, subject): a never-seen pair creates an
// account, a known pair gets its profile fields overwritten — the provider
// is authoritative for email/name/avatar, so last login wins. Repeated
// logins with the same pair always resolve to the same local id.
func (s *AuthService) ResolveLogin(ctx context.Context, profile *auth.Profile) (*LoginResult, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: profile must not be nil")
	}

	user := &model.User{
		OAuthProvider: profile.Provider,
		OAuthID:       profile.Subject,
		Email:         profile.Email,
		FullName:      profile.FullName,
		AvatarURL:     profile.AvatarURL,
	}
	if err := s.users.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: resolving identity (%s/%s): %w",
			profile.Provider, profile.Subject, err)
	}

	s.logger.Info("user authenticated",
		slog.String("provider", profile.Provider),
		slog.Int64("userID", user.ID),
	)

	// Sessions from the OAuth flow are always long-lived — the original
	// login is already a full browser round trip, so re-prompting within a
	// week helps nobody.
	token, sess, err := s.sessions.Issue(user, true)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %d: %w", user.ID, err)
	}

	return &LoginResult{User: user, Token: token, Session: sess}, nil
}

// CurrentUser returns the user record for the given local id, for the
// current-user endpoint. Returns apperror.ErrNotFound if the account has
// vanished since the session was issued.
func (s *AuthService) CurrentUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}
