// Package client calls the labstock HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"labstock-backend/internal/ledger"
	"labstock-backend/internal/models"
	"labstock-backend/internal/workflow"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("labstock api: %d %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second).
			SetHeader("Accept", "application/json").
			SetError(&errorBody{}),
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := http.StatusText(resp.StatusCode())
		if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
			msg = eb.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

// AdminUnlock swaps the current token for an admin one.
func (c *Client) AdminUnlock(ctx context.Context, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/admin-unlock", map[string]string{"password": password}, &out); err != nil {
		return err
	}
	c.SetToken(out.Token)
	return nil
}

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := c.do(ctx, http.MethodGet, "/api/products", nil, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context) (workflow.Snapshot, error) {
	var out workflow.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/scan-sessions", nil, &out)
	return out, err
}

func (c *Client) Offer(ctx context.Context, sessionID string, in workflow.Input) (workflow.Snapshot, error) {
	var out workflow.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/scan-sessions/"+sessionID+"/code", in, &out)
	return out, err
}

func (c *Client) Confirm(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	var out workflow.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/scan-sessions/"+sessionID+"/confirm", nil, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context, sessionID string) (workflow.Snapshot, error) {
	var out workflow.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/scan-sessions/"+sessionID+"/reset", nil, &out)
	return out, err
}

func (c *Client) RecordMiscUse(ctx context.Context, itemName string, quantity int) (*models.HistoryEntry, error) {
	var out models.HistoryEntry
	err := c.do(ctx, http.MethodPost, "/api/misc-uses", map[string]any{
		"item_name": itemName,
		"quantity":  quantity,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdjustStock(ctx context.Context, productID uint, delta int) (ledger.Result, error) {
	var out ledger.Result
	err := c.do(ctx, http.MethodPost, productPath(productID)+"/adjust", map[string]int{"delta": delta}, &out)
	return out, err
}

func (c *Client) SetStock(ctx context.Context, productID uint, value int) (ledger.Result, error) {
	var out ledger.Result
	err := c.do(ctx, http.MethodPut, productPath(productID)+"/stock", map[string]int{"value": value}, &out)
	return out, err
}

func (c *Client) History(ctx context.Context) ([]models.HistoryView, error) {
	var out []models.HistoryView
	err := c.do(ctx, http.MethodGet, "/api/admin/history", nil, &out)
	return out, err
}

func productPath(id uint) string {
	return "/api/admin/products/" + strconv.FormatUint(uint64(id), 10)
}
