// Package api is the HTTP client for the notifications backend: list and
// history queries, read-state write-through, and push subscription
// registration, deactivation, and dispatch.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/oakledger/beacon/internal/model"
)

// Client talks to the beacond HTTP API with a bearer session token.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetToken installs the session token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type tokenRequest struct {
	UserID    string `json:"user_id"`
	AccessKey string `json:"access_key"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges the user's access key for a session token and installs it
// on the client.
func (c *Client) Login(ctx context.Context, userID, accessKey string) error {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/token", tokenRequest{UserID: userID, AccessKey: accessKey}, &resp)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.SetToken(resp.Token)
	return nil
}

// List fetches the most recent records for userID, newest first.
func (c *Client) List(ctx context.Context, userID string, limit int) ([]model.Record, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("limit", strconv.Itoa(limit))
	var records []model.Record
	if err := c.do(ctx, http.MethodGet, "/api/notifications?"+q.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return records, nil
}

// All fetches the complete notification log for userID, newest first.
func (c *Client) All(ctx context.Context, userID string) ([]model.Record, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("all", "true")
	var records []model.Record
	if err := c.do(ctx, http.MethodGet, "/api/notifications?"+q.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("list all notifications: %w", err)
	}
	return records, nil
}

// History fetches one server-side page of the notification log.
func (c *Client) History(ctx context.Context, userID string, page, pageSize int) (model.HistoryPage, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var resp model.HistoryPage
	if err := c.do(ctx, http.MethodGet, "/api/notifications/history?"+q.Encode(), nil, &resp); err != nil {
		return model.HistoryPage{}, fmt.Errorf("notification history: %w", err)
	}
	return resp, nil
}

type setReadRequest struct {
	IDs  []string `json:"ids"`
	Read bool     `json:"read"`
}

// SetRead updates the read flag of the given notification ids.
func (c *Client) SetRead(ctx context.Context, ids []string, read bool) error {
	if err := c.do(ctx, http.MethodPatch, "/api/notifications/read", setReadRequest{IDs: ids, Read: read}, nil); err != nil {
		return fmt.Errorf("set read: %w", err)
	}
	return nil
}

type vapidKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// VAPIDPublicKey fetches the server's VAPID public key used to create push
// subscriptions.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var resp vapidKeyResponse
	if err := c.do(ctx, http.MethodGet, "/api/push/vapid-key", nil, &resp); err != nil {
		return "", fmt.Errorf("vapid key: %w", err)
	}
	return resp.PublicKey, nil
}

// RegisterPush records the subscription in the server-side registry.
func (c *Client) RegisterPush(ctx context.Context, sub model.PushSubscription) error {
	if err := c.do(ctx, http.MethodPost, "/api/push/subscriptions", sub, nil); err != nil {
		return fmt.Errorf("register push subscription: %w", err)
	}
	return nil
}

type deactivateRequest struct {
	Endpoint string `json:"endpoint"`
}

// DeactivatePush marks the subscription inactive server-side.
func (c *Client) DeactivatePush(ctx context.Context, endpoint string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/push/subscriptions", deactivateRequest{Endpoint: endpoint}, nil); err != nil {
		return fmt.Errorf("deactivate push subscription: %w", err)
	}
	return nil
}

type sendPushRequest struct {
	UserID  string            `json:"user_id"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Tag     string            `json:"tag,omitempty"`
	Link    string            `json:"link,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	Urgency string            `json:"urgency,omitempty"`
}

// SendPush asks the server to dispatch a push message to every active
// subscription of userID.
func (c *Client) SendPush(ctx context.Context, userID, title, body, tag, link string, data map[string]string) error {
	req := sendPushRequest{UserID: userID, Title: title, Body: body, Tag: tag, Link: link, Data: data}
	if err := c.do(ctx, http.MethodPost, "/api/push/send", req, nil); err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	return nil
}

// FeedURL returns the websocket endpoint for the change feed.
func (c *Client) FeedURL() string {
	return c.baseURL + "/api/feed"
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
