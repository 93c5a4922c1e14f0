// Package oauth2 implements the provider side of the OAuth2
// authorization-code flow: redirect with a random state cookie, state
// check on callback, code exchange and profile fetch. A completed
// handshake hands the resolved profile to the configured CompleteFunc;
// user resolution and session establishment stay with the caller.
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/panyam/authgate"
)

// CompleteFunc receives the provider profile after a successful
// callback exchange.
type CompleteFunc func(w http.ResponseWriter, r *http.Request, provider string, profile *authgate.Profile)

// ErrorFunc is called when the handshake fails. The error wraps
// authgate.ErrProviderExchange.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

const stateCookieName = "oauthstate"

// Provider drives the handshake for one identity provider. Construct
// with NewGoogle or NewGitHub, or fill the fields directly for a custom
// provider.
type Provider struct {
	Name        string
	Config      xoauth2.Config
	UserInfoURL string

	// ProfileFromClaims maps the provider's userinfo document onto a
	// Profile. Defaults to the common id/email/name/picture keys.
	ProfileFromClaims func(claims map[string]any) *authgate.Profile

	OnProfile CompleteFunc
	OnError   ErrorFunc

	Logger *slog.Logger
}

func (p *Provider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// HandleRedirect starts the flow: set the state cookie and send the
// user to the provider's authorization endpoint.
func (p *Provider) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	state := newStateValue()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	})
	http.Redirect(w, r, p.Config.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the flow: verify the state, exchange the code
// for a token, fetch the userinfo document and hand the profile over.
func (p *Provider) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		p.fail(w, r, fmt.Errorf("%w: missing oauth state", authgate.ErrProviderExchange))
		return
	}
	// Clear the state cookie; it is single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if r.FormValue("state") != stateCookie.Value {
		p.fail(w, r, fmt.Errorf("%w: oauth state mismatch", authgate.ErrProviderExchange))
		return
	}
	if msg := r.FormValue("error"); msg != "" {
		p.fail(w, r, fmt.Errorf("%w: provider denied: %s", authgate.ErrProviderExchange, msg))
		return
	}

	profile, err := p.exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		p.fail(w, r, err)
		return
	}

	p.OnProfile(w, r, p.Name, profile)
}

// exchange trades the authorization code for a token and fetches the
// userinfo document with it.
func (p *Provider) exchange(ctx context.Context, code string) (*authgate.Profile, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", authgate.ErrProviderExchange, err)
	}

	client := p.Config.Client(ctx, token)
	resp, err := client.Get(p.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo fetch: %v", authgate.ErrProviderExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", authgate.ErrProviderExchange, resp.StatusCode)
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: userinfo decode: %v", authgate.ErrProviderExchange, err)
	}

	mapper := p.ProfileFromClaims
	if mapper == nil {
		mapper = DefaultProfileFromClaims
	}
	profile := mapper(claims)
	if profile == nil || profile.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", authgate.ErrProviderExchange)
	}
	return profile, nil
}

func (p *Provider) fail(w http.ResponseWriter, r *http.Request, err error) {
	p.logger().Warn("oauth handshake failed", "provider", p.Name, "err", err)
	if p.OnError != nil {
		p.OnError(w, r, err)
		return
	}
	http.Error(w, "Authentication failed", http.StatusBadGateway)
}

// DefaultProfileFromClaims reads the keys Google-style userinfo
// documents use. Numeric subjects are stringified.
func DefaultProfileFromClaims(claims map[string]any) *authgate.Profile {
	profile := &authgate.Profile{}
	if v, ok := claims["email"].(string); ok {
		profile.Email = v
	}
	if v := claims["id"]; v != nil {
		profile.Subject = fmt.Sprint(v)
	}
	if v, ok := claims["sub"].(string); ok && profile.Subject == "" {
		profile.Subject = v
	}
	if v, ok := claims["name"].(string); ok {
		profile.Name = v
	}
	if v, ok := claims["picture"].(string); ok {
		profile.Picture = v
	}
	return profile
}

func newStateValue() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
