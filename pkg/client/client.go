package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidAddress is returned when the server rejects the address format.
var ErrInvalidAddress = errors.New("invalid IP address")

// CheckResult is the response of GET /check_ip.
type CheckResult struct {
	Message       string `json:"message,omitempty"`
	IsTorExitNode bool   `json:"is_tor_exit_node"`
	RiskScore     int    `json:"risk_score"`
	RiskLevel     string `json:"risk_level,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	LastChecked   string `json:"last_checked"`
}

// Found reports whether the server had a stored observation for the address.
func (r *CheckResult) Found() bool {
	return r.RiskLevel != ""
}

// Client talks to one exit-node risk checker server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	adminToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithAdminToken attaches an admin Bearer token to delete requests.
func WithAdminToken(token string) Option {
	return func(c *Client) error {
		c.adminToken = token
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("server URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Check scores ip. IPv6 literals may be passed bare or bracketed.
func (c *Client) Check(ctx context.Context, ip string) (*CheckResult, error) {
	status, body, err := c.call(ctx, http.MethodGet, "/check_ip?ip="+url.QueryEscape(ip), nil, false)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, errorMessage(body))
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}

	var res CheckResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode check response: %w", err)
	}
	return &res, nil
}

// List returns every stored address in canonical form.
func (c *Client) List(ctx context.Context) ([]string, error) {
	status, body, err := c.call(ctx, http.MethodGet, "/list_ips", nil, false)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}

	var resp struct {
		Nodes []string `json:"tor_exit_nodes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return resp.Nodes, nil
}

// Delete removes ip from the store. It reports whether a row was deleted;
// an address that was not stored returns false and no error.
func (c *Client) Delete(ctx context.Context, ip string) (bool, error) {
	status, body, err := c.call(ctx, http.MethodDelete, "/delete_ip?ip="+url.QueryEscape(ip), nil, true)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusBadRequest:
		return false, fmt.Errorf("%w: %s", ErrInvalidAddress, errorMessage(body))
	case http.StatusUnauthorized:
		return false, fmt.Errorf("unauthorized: %s", errorMessage(body))
	default:
		return false, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}
}

// AdminToken exchanges the admin secret for an admin token.
func (c *Client) AdminToken(ctx context.Context, secret string) (string, error) {
	payload, err := json.Marshal(map[string]string{"secret": secret})
	if err != nil {
		return "", err
	}
	status, body, err := c.call(ctx, http.MethodPost, "/admin/token", payload, false)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token exchange failed (%d): %s", status, errorMessage(body))
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return resp.Token, nil
}

// call performs one request and returns (statusCode, body, error) without
// failing on 4xx responses. The caller interprets the status code.
func (c *Client) call(ctx context.Context, method, path string, payload []byte, admin bool) (int, []byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
