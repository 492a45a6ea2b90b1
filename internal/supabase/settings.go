package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Settings is the public auth configuration of the project.
type Settings struct {
	DisableSignup     bool `json:"disable_signup"`
	MailerAutoconfirm bool `json:"mailer_autoconfirm"`
}

// Settings fetches the public auth settings. The request goes through the
// settings client so a caching transport can honour the server's cache headers.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/settings", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build settings request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.settingsHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch auth settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAuthError(resp)
	}

	settings := new(Settings)
	if err := json.NewDecoder(resp.Body).Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to decode auth settings: %w", err)
	}

	return settings, nil
}
