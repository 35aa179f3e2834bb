package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// expiryLeeway renews the token before the server-side deadline.
const expiryLeeway = 30 * time.Second

// tokenSource obtains and caches a client-credentials access token
// for the identity service's management API.
type tokenSource struct {
	httpclient *http.Client
	tokenURL   string
	creds      Credentials

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt.Add(-expiryLeeway)) {
		return s.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     s.creds.ClientID,
		"client_secret": s.creds.ClientSecret,
		"audience":      s.creds.Audience,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpclient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity token request failed (status code = %d)", resp.StatusCode)
	}

	grant := struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return "", err
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("identity token response carried no access token")
	}

	s.token = grant.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	return s.token, nil
}
