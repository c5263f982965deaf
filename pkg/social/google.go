// Package social holds the third-party identity provider integrations. The
// flow core only tears sessions down through Disconnect; token acquisition
// happens here and the resulting token is handed to the flow.
package social

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/flow"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// GoogleProvider drives the Google OAuth2 consent flow and revokes granted
// tokens on disconnect.
type GoogleProvider struct {
	config    oauth2.Config
	client    *http.Client
	revokeURL string

	// lastToken is the most recent exchanged token, revoked on Disconnect.
	lastToken string
}

var _ flow.SocialIdentityProvider = (*GoogleProvider)(nil)

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		client:    http.DefaultClient,
		revokeURL: googleRevokeURL,
	}
}

// ConsentURL returns the URL to open for user consent.
func (g *GoogleProvider) ConsentURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for the identity token the flow
// submits to the authentication facade.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", autherr.NewFacadeError(autherr.DomainSocial, autherr.CodeUnauthorized, fmt.Sprintf("code exchange failed: %v", err))
	}
	g.lastToken = token.AccessToken
	return token.AccessToken, nil
}

// Disconnect revokes the last exchanged token so a later attempt starts from
// a clean consent.
func (g *GoogleProvider) Disconnect(ctx context.Context) error {
	if g.lastToken == "" {
		return nil
	}
	form := url.Values{"token": {g.lastToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Token revocation refused", "status", resp.StatusCode)
		return fmt.Errorf("token revocation refused with status %d", resp.StatusCode)
	}
	g.lastToken = ""
	return nil
}
