package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/ItzSouraseez/knowyourplate/config"
	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
)

const ProviderGoogle = "google"

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// Google runs the hosted consent flow: the browser is sent to AuthCodeURL and
// comes back to the callback with a code that Flow exchanges for an identity.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	revokeURL   string
	client      *http.Client
	log         *zap.Logger
}

func NewGoogle(cfg config.OAuthConfig, redirectURL string, client *http.Client, log *zap.Logger) *Google {
	if client == nil {
		client = http.DefaultClient
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		revokeURL:   googleRevokeURL,
		client:      client,
		log:         log.Named("auth.google"),
	}
}

// AuthCodeURL is where the browser goes to start the consent flow. state must
// be echoed back on the callback.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type userInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Flow completes the consent flow for the code returned on the callback.
func (g *Google) Flow(code string) session.Flow {
	return func(ctx context.Context) (*models.Identity, error) {
		if code == "" {
			return nil, fmt.Errorf("missing authorization code")
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
		tok, err := g.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := g.oauth.Client(ctx, tok).Do(req)
		if err != nil {
			return nil, fmt.Errorf("userinfo: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		var info userInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("decode userinfo: %w", err)
		}
		if info.Sub == "" {
			return nil, fmt.Errorf("userinfo: empty subject")
		}
		name := info.Name
		if name == "" {
			name = info.Email
		}
		g.log.Debug("consent flow completed", zap.String("sub", info.Sub))
		return &models.Identity{
			Subject:     info.Sub,
			DisplayName: name,
			Provider:    ProviderGoogle,
			AccessToken: tok.AccessToken,
		}, nil
	}
}

// SignOut revokes the access token held by the identity.
func (g *Google) SignOut(ctx context.Context, id *models.Identity) error {
	if id.AccessToken == "" {
		return nil
	}
	form := url.Values{"token": {id.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	// An expired or already revoked token leaves nothing to invalidate.
	if resp.StatusCode == http.StatusBadRequest && revokeErrorCode(resp.Body) == "invalid_token" {
		g.log.Debug("token already invalid", zap.String("sub", id.Subject))
		return nil
	}
	return fmt.Errorf("revoke token: status %d", resp.StatusCode)
}

func revokeErrorCode(body io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 512)).Decode(&e); err != nil {
		return ""
	}
	return e.Error
}
