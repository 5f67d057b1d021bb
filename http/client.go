package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	walletsession "github.com/x402-foundation/walletsession"
)

// ============================================================================
// HTTP Session Client
// ============================================================================

// Client talks to the session endpoints of a running walletd
type Client struct {
	url        string
	httpClient *http.Client
}

// ClientConfig configures the session client
type ClientConfig struct {
	// URL is the base URL of the walletd service
	URL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// DefaultClientURL is where walletd listens by default
const DefaultClientURL = "http://localhost:4030"

// NewClient creates a session client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}

	url := strings.TrimRight(config.URL, "/")
	if url == "" {
		url = DefaultClientURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{url: url, httpClient: httpClient}
}

// Status fetches the current session
func (c *Client) Status(ctx context.Context) (SessionResponse, error) {
	return c.do(ctx, http.MethodGet, SessionPath)
}

// Connect asks the daemon to request account access
func (c *Client) Connect(ctx context.Context) (SessionResponse, error) {
	return c.do(ctx, http.MethodPost, ConnectPath)
}

// Disconnect clears the daemon's session
func (c *Client) Disconnect(ctx context.Context) (SessionResponse, error) {
	return c.do(ctx, http.MethodPost, DisconnectPath)
}

// do sends a request and decodes the session response. A non-2xx answer with
// a session error body is returned as both the response and a
// *walletsession.SessionError.
func (c *Client) do(ctx context.Context, method, path string) (SessionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, nil)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	var sessionResp SessionResponse
	if err := json.Unmarshal(body, &sessionResp); err != nil {
		return SessionResponse{}, fmt.Errorf("%s %s failed (%d): %s", method, path, resp.StatusCode, string(body))
	}

	if sessionResp.Error != nil {
		return sessionResp, walletsession.NewSessionError(sessionResp.Error.Code, sessionResp.Error.Message, nil)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return sessionResp, fmt.Errorf("%s %s failed (%d)", method, path, resp.StatusCode)
	}
	return sessionResp, nil
}
