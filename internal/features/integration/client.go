package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contacts-sync/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const customerTokenTTL = 2 * time.Hour

// Customer identifies whose connections a call acts on.
type Customer struct {
	ID   string
	Name string
}

type Connection struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IntegrationKey string `json:"integrationKey"`
	Disconnected   bool   `json:"disconnected"`
}

type Client interface {
	// FindConnections lists the customer's active connections for one integration.
	FindConnections(ctx context.Context, customer Customer, integrationKey string) ([]Connection, error)
	// ConnectionRequest proxies a CRM API call through a connection and returns the raw body.
	ConnectionRequest(ctx context.Context, customer Customer, connectionID, path, method string, data interface{}) (json.RawMessage, error)
}

type HTTPClient struct {
	BaseURL         string
	WorkspaceKey    string
	WorkspaceSecret string
	HttpClient      *http.Client
	Log             *zap.Logger

	now func() time.Time
}

func NewClient(cfg *config.Config, log *zap.Logger) Client {
	return &HTTPClient{
		BaseURL:         strings.TrimRight(cfg.IntegrationAPIURL, "/"),
		WorkspaceKey:    cfg.IntegrationWorkspaceKey,
		WorkspaceSecret: cfg.IntegrationWorkspaceSecret,
		HttpClient: &http.Client{
			Timeout: cfg.IntegrationTimeout,
		},
		Log: log.Named("integration"),
		now: time.Now,
	}
}

// customerToken signs the per-customer access token the platform expects.
func (c *HTTPClient) customerToken(customer Customer) (string, error) {
	if c.WorkspaceSecret == "" {
		return "", errors.New("integration workspace secret is not configured")
	}
	name := customer.Name
	if name == "" {
		name = customer.ID
	}

	now := c.now()
	claims := jwt.MapClaims{
		"id":   customer.ID,
		"name": name,
		"iss":  c.WorkspaceKey,
		"iat":  now.Unix(),
		"exp":  now.Add(customerTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.WorkspaceSecret))
}

type connectionsPage struct {
	Items []Connection `json:"items"`
}

func (c *HTTPClient) FindConnections(ctx context.Context, customer Customer, integrationKey string) ([]Connection, error) {
	query := url.Values{"integrationKey": {integrationKey}}
	body, err := c.do(ctx, customer, http.MethodGet, "/connections?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var page connectionsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	active := make([]Connection, 0, len(page.Items))
	for _, conn := range page.Items {
		if !conn.Disconnected {
			active = append(active, conn)
		}
	}
	return active, nil
}

func (c *HTTPClient) ConnectionRequest(ctx context.Context, customer Customer, connectionID, path, method string, data interface{}) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.do(ctx, customer, method, "/connections/"+url.PathEscape(connectionID)+"/proxy"+path, data)
}

func (c *HTTPClient) do(ctx context.Context, customer Customer, method, path string, data interface{}) (json.RawMessage, error) {
	token, err := c.customerToken(customer)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		c.Log.Warn("integration request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("customerId", customer.ID),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.Log.Debug("integration request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Message: upstreamMessage(resp.StatusCode, body)}
	}
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// upstreamMessage prefers the "message" or "error" field of a JSON error body.
func upstreamMessage(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
