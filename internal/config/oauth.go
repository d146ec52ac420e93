package config

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleOAuthConfig sert à l'échange de code pour POST /api/auth/google (flux SPA, redirect "postmessage")
func GoogleOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  "postmessage",
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleCallbackURL est l'URL de retour du flux goth
func GoogleCallbackURL(cfg Config) string {
	return cfg.BaseURL + "/api/auth/google/callback"
}
