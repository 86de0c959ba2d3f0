package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/google"
)

// Profile is the provider-neutral identity assertion produced by a completed
// OAuth exchange. The identity resolver maps it to a local user record.
//
// Subject is the provider-scoped stable user id (Google "sub", Discord id,
// Facebook id) — opaque to us, unique only together with Provider.
type Profile struct {
	Provider  string
	Subject   string
	Email     string
	FullName  string
	AvatarURL *string
}

// Provider abstracts one OAuth identity provider: where to send the user,
// and how to turn the callback code into a Profile.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the browser to the provider's authorization endpoint.
//  2. The user approves; the provider redirects back with a short-lived code.
//  3. We exchange the code for an access token (server-to-server, using the
//     client secret — the token never touches the browser).
//  4. We call the provider's profile API with the token.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Registry maps provider names to Provider implementations. Only registered
// names are valid in /login/{provider} — anything else is a 400.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry under its own name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider registered under the given name.
// Returns false if the name is not registered.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns a sorted list of all registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fetchJSON calls an API endpoint with the token-bearing client and decodes
// the JSON response. Shared by all three providers.
func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding %s response: %w", url, err)
	}
	return nil
}

// --- Google ---

// GoogleProvider implements the Google OpenID Connect flow.
type GoogleProvider struct {
	config *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging google code: %w", err)
	}

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(p.config.Client(ctx, token),
		"https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("auth: google returned an empty user id")
	}

	name := info.Name
	if name == "" {
		// Google may omit the display name; fall back to the email local part.
		name = emailLocalPart(info.Email)
	}

	return &Profile{
		Provider:  "google",
		Subject:   info.ID,
		Email:     info.Email,
		FullName:  name,
		AvatarURL: optional(info.Picture),
	}, nil
}

// --- Discord ---

// DiscordProvider implements the Discord OAuth flow.
type DiscordProvider struct {
	config *oauth2.Config
}

func NewDiscordProvider(clientID, clientSecret, callbackURL string) *DiscordProvider {
	return &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"identify", "email"},
			Endpoint:     endpoints.Discord,
		},
	}
}

func (p *DiscordProvider) Name() string { return "discord" }

func (p *DiscordProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging discord code: %w", err)
	}

	var info struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
		Avatar     string `json:"avatar"` // avatar hash, not a URL
	}
	if err := fetchJSON(p.config.Client(ctx, token),
		"https://discord.com/api/users/@me", &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("auth: discord returned an empty user id")
	}

	// Discord only returns an email with the "email" scope and a verified
	// account; synthesize a stable placeholder otherwise.
	email := info.Email
	if email == "" {
		email = info.Username + "@discord.user"
	}

	name := info.GlobalName
	if name == "" {
		name = info.Username
	}

	var avatar *string
	if info.Avatar != "" {
		url := fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", info.ID, info.Avatar)
		avatar = &url
	}

	return &Profile{
		Provider:  "discord",
		Subject:   info.ID,
		Email:     email,
		FullName:  name,
		AvatarURL: avatar,
	}, nil
}

// --- Facebook ---

// FacebookProvider implements the Facebook Graph OAuth flow.
type FacebookProvider struct {
	config *oauth2.Config
}

func NewFacebookProvider(clientID, clientSecret, callbackURL string) *FacebookProvider {
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     endpoints.Facebook,
		},
	}
}

func (p *FacebookProvider) Name() string { return "facebook" }

func (p *FacebookProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *FacebookProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging facebook code: %w", err)
	}

	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := fetchJSON(p.config.Client(ctx, token),
		"https://graph.facebook.com/me?fields=id,name,email,picture", &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("auth: facebook returned an empty user id")
	}

	// Facebook accounts registered by phone number have no email.
	email := info.Email
	if email == "" {
		email = info.ID + "@facebook.user"
	}

	return &Profile{
		Provider:  "facebook",
		Subject:   info.ID,
		Email:     email,
		FullName:  info.Name,
		AvatarURL: optional(info.Picture.Data.URL),
	}, nil
}

// optional converts a possibly-empty string into the nullable form the
// models use.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emailLocalPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
