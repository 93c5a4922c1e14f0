package oauth2

import (
	"os"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/panyam/authgate"
)

const githubUserInfoURL = "https://api.github.com/user"

// NewGitHub configures the GitHub provider. Empty arguments fall back to
// the OAUTH_GITHUB_* environment variables. GitHub only exposes an email
// here when the user has a public one; accounts without it are rejected
// at the exchange step.
func NewGitHub(clientID, clientSecret, callbackURL string, onProfile CompleteFunc) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH_GITHUB_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH_GITHUB_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH_GITHUB_CALLBACK_URL")
	}

	return &Provider{
		Name: "github",
		Config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		UserInfoURL: githubUserInfoURL,
		ProfileFromClaims: func(claims map[string]any) *authgate.Profile {
			profile := DefaultProfileFromClaims(claims)
			if v, ok := claims["avatar_url"].(string); ok && profile.Picture == "" {
				profile.Picture = v
			}
			return profile
		},
		OnProfile: onProfile,
	}
}
