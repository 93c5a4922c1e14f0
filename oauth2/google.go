package oauth2

import (
	"os"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewGoogle configures the Google provider. Empty arguments fall back to
// the OAUTH_GOOGLE_* environment variables.
func NewGoogle(clientID, clientSecret, callbackURL string, onProfile CompleteFunc) *Provider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH_GOOGLE_CALLBACK_URL")
	}

	return &Provider{
		Name: "google",
		Config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
		OnProfile:   onProfile,
	}
}
