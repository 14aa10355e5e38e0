package prefstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	personalization "github.com/goliatone/go-personalize/components/personalization"
)

// HTTPConfig configures the REST preference store client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPStore talks to a remote preference service via REST. Documents live at
// {base}/users/{id}/preferences; GET fetches, PUT replaces wholesale.
type HTTPStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ personalization.PreferenceStore = (*HTTPStore)(nil)

// NewHTTPStore builds a client for a live preference endpoint.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("prefstore: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStore{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// Fetch retrieves the stored document. A 404 means the user has no document
// yet; malformed payloads are rejected so the caller falls back to defaults.
func (s *HTTPStore) Fetch(ctx context.Context, userID string) (personalization.Preferences, bool, error) {
	if userID == "" {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: user id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.documentURL(userID), nil)
	if err != nil {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: build request: %w", err)
	}
	s.decorate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return personalization.Preferences{}, false, nil
	}
	if resp.StatusCode >= 300 {
		return personalization.Preferences{}, false, remoteError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return personalization.Preferences{}, false, fmt.Errorf("prefstore: read response: %w", err)
	}
	prefs, err := personalization.DecodePreferences(data)
	if err != nil {
		return personalization.Preferences{}, false, err
	}
	return prefs, true, nil
}

// Replace overwrites the stored document.
func (s *HTTPStore) Replace(ctx context.Context, userID string, prefs personalization.Preferences) error {
	if userID == "" {
		return fmt.Errorf("prefstore: user id is required")
	}
	body, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("prefstore: encode preferences: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.documentURL(userID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("prefstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.decorate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("prefstore: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	return nil
}

func (s *HTTPStore) documentURL(userID string) string {
	return fmt.Sprintf("%s/users/%s/preferences", s.baseURL, url.PathEscape(userID))
}

func (s *HTTPStore) decorate(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func remoteError(resp *http.Response) error {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return fmt.Errorf("prefstore: remote error %d: %s", resp.StatusCode, buf.String())
}
