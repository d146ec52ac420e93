package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrEmailNotVerified est renvoyée quand Google ne garantit pas l'email
var ErrEmailNotVerified = errors.New("email Google non vérifié")

// Profile est l'identité renvoyée par le fournisseur
type Profile struct {
	ProviderID string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	Verified   bool   `json:"verified_email"`
}

type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

func NewGoogleProvider(cfg *oauth2.Config) *OAuthProvider {
	return &OAuthProvider{Name: "google", Config: cfg, UserInfoURL: googleUserInfoURL}
}

func (p *OAuthProvider) GetAuthURL(state string) string {
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.Config.Exchange(ctx, code)
}

// Authenticate échange le code puis récupère le profil userinfo
func (p *OAuthProvider) Authenticate(ctx context.Context, code string) (*Profile, error) {
	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("échange du code %s: %w", p.Name, err)
	}
	return p.FetchProfile(ctx, token)
}

func (p *OAuthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := p.Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo %s: %w", p.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo %s: statut %d", p.Name, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("décodage userinfo: %w", err)
	}
	if !profile.Verified {
		return nil, ErrEmailNotVerified
	}
	return &profile, nil
}
