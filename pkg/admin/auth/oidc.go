package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OIDCAuthenticator supports an optional single-sign-on path for operator
// login. When the OIDC environment variables are unset the admin service
// falls back to the password login only.
type OIDCAuthenticator struct {
	config *oauth2.Config
	issuer string
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret, redirectURL string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config: config,
		issuer: issuer,
	}, nil
}

// AuthURL returns the provider URL the browser is redirected to.
func (a *OIDCAuthenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and fetches the
// userinfo endpoint to learn who logged in.
func (a *OIDCAuthenticator) Exchange(ctx context.Context, code string) (string, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}

	client := a.config.Client(ctx, token)
	resp, err := client.Get(fmt.Sprintf("%s/userinfo", a.issuer))
	if err != nil {
		return "", fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response missing email")
	}
	return info.Email, nil
}
