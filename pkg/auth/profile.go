package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ProfileClient fetches display names from the external identity provider.
// Lookups are best-effort: the handshake proceeds on the token subject when
// the provider is unreachable.
type ProfileClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewProfileClient creates a client for the identity provider at baseURL.
// Returns nil when baseURL is empty, which callers treat as "no provider".
func NewProfileClient(baseURL, serviceKey string) *ProfileClient {
	if baseURL == "" {
		return nil
	}
	return &ProfileClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type profileResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Lookup returns the display name for userID.
func (p *ProfileClient) Lookup(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s", p.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Service-Key", p.serviceKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile lookup for %s returned %d", userID, resp.StatusCode)
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.DisplayName == "" {
		return userID, nil
	}
	return body.DisplayName, nil
}
