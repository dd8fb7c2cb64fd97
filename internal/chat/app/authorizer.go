package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/relooped/supportchat/internal/platform/timeouts"
)

// wsAuthorizer resolves a session token carried by the websocket handshake
// into a chat identity.
type wsAuthorizer interface {
	Authenticate(ctx context.Context, sessionToken string) (identity, error)
}

type authIntrospectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type shopAuthorizer struct {
	authBaseURL    string
	resourceSecret string
	httpClient     *http.Client
}

// newShopAuthorizer builds the storefront session introspector. Returns nil
// when auth is not configured, in which case identity falls back to
// handshake query parameters.
func newShopAuthorizer(config Config) wsAuthorizer {
	authBaseURL := strings.TrimSpace(config.AuthBaseURL)
	resourceSecret := strings.TrimSpace(config.AuthResourceSecret)
	if authBaseURL == "" || resourceSecret == "" {
		return nil
	}

	return &shopAuthorizer{
		authBaseURL:    authBaseURL,
		resourceSecret: resourceSecret,
		httpClient:     &http.Client{Timeout: timeouts.AuthRequest},
	}
}

func (a *shopAuthorizer) Authenticate(ctx context.Context, sessionToken string) (identity, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return identity{}, errors.New("session token is required")
	}

	endpoint := strings.TrimRight(a.authBaseURL, "/") + "/introspect"
	authCtx, cancel := context.WithTimeout(ctx, timeouts.AuthRequest)
	defer cancel()

	req, err := http.NewRequestWithContext(authCtx, http.MethodPost, endpoint, nil)
	if err != nil {
		return identity{}, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("X-Resource-Secret", a.resourceSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return identity{}, fmt.Errorf("call auth introspection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity{}, fmt.Errorf("auth introspection status %d", resp.StatusCode)
	}

	var payload authIntrospectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return identity{}, fmt.Errorf("decode introspection response: %w", err)
	}
	if !payload.Active {
		return identity{}, errors.New("inactive session token")
	}

	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return identity{}, errors.New("introspection returned empty user id")
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = userID
	}
	return identity{
		UserID: userID,
		Name:   name,
		Admin:  strings.EqualFold(strings.TrimSpace(payload.Role), "admin"),
	}, nil
}
