// Package contentstore is the HTTP client for the shared content
// backend and the automated-content identity endpoints.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
)

// Client talks JSON over HTTP with bearer-token auth. SignInAs swaps
// the bearer token for the automated identity's session token; the
// publisher drives the client sequentially, so no locking is needed.
type Client struct {
	baseURL    string
	apiKey     string
	authToken  string
	httpClient *http.Client
}

var (
	_ ports.ContentStore     = (*Client)(nil)
	_ ports.IdentityProvider = (*Client)(nil)
)

// NewClient builds a client for the content API at baseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateTitle creates a title record and returns its id.
func (c *Client) CreateTitle(ctx context.Context, fields domain.ArticleFields) (string, error) {
	var resp idResponse
	if err := c.post(ctx, "/articles", fields, &resp); err != nil {
		return "", fmt.Errorf("create title: %w", err)
	}
	return resp.ID, nil
}

// CreateEntry creates a body entry and returns its id.
func (c *Client) CreateEntry(ctx context.Context, fields domain.EntryFields) (string, error) {
	var resp idResponse
	if err := c.post(ctx, "/entries", fields, &resp); err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}
	return resp.ID, nil
}

// InitializeAutomatedIdentity provisions the automated-content author.
// The backend is idempotent: an already provisioned identity is
// returned as-is.
func (c *Client) InitializeAutomatedIdentity(ctx context.Context) (domain.Identity, error) {
	if c.baseURL == "" {
		return domain.Identity{}, fmt.Errorf("content store client misconfigured")
	}

	var identity domain.Identity
	if err := c.post(ctx, "/identities/automated", struct{}{}, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("initialize identity: %w", err)
	}
	return identity, nil
}

// SignInAs opens a session for the identity; subsequent writes carry
// its token.
func (c *Client) SignInAs(ctx context.Context, identity domain.Identity) error {
	payload := map[string]string{"identityId": identity.ID, "token": identity.Token}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/sessions", payload, &resp); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if resp.Token != "" {
		c.authToken = resp.Token
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) bearer() string {
	if c.authToken != "" {
		return c.authToken
	}
	return c.apiKey
}
