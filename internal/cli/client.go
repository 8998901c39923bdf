package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopsim/internal/auth"
)

// Client talks to the econ API. Every call decodes into a generic map; the
// command layer picks the fields it renders.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	}, &out)
	return out, err
}

func (c *Client) BusinessTypes(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/v1/catalog/business-types", "", nil)
}

func (c *Client) Tools(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/v1/catalog/tools", "", nil)
}

func (c *Client) Stocks(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/v1/stocks", "", nil)
}

func (c *Client) CreateBusiness(ctx context.Context, accessToken, name, typeID string, capital float64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/businesses", accessToken, map[string]any{
		"name":             name,
		"type_id":          typeID,
		"starting_capital": capital,
	})
}

func (c *Client) MyBusiness(ctx context.Context, accessToken string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, "/v1/businesses/mine", accessToken, nil)
}

func (c *Client) BusinessState(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, businessPath(businessID, ""), accessToken, nil)
}

func (c *Client) CloseBusiness(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodDelete, businessPath(businessID, ""), accessToken, nil)
}

func (c *Client) StartSim(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/sim/start"), accessToken, nil)
}

func (c *Client) StopSim(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/sim/stop"), accessToken, nil)
}

func (c *Client) ActiveOrders(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, businessPath(businessID, "/orders"), accessToken, nil)
}

// AcceptOrder leaves the pick to the simulation when employeeID is empty.
func (c *Client) AcceptOrder(ctx context.Context, accessToken, businessID, orderID, employeeID string) (map[string]any, error) {
	var body map[string]any
	if employeeID != "" {
		body = map[string]any{"employee_id": employeeID}
	}
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/orders/"+url.PathEscape(orderID)+"/accept"), accessToken, body)
}

func (c *Client) RejectOrder(ctx context.Context, accessToken, businessID, orderID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/orders/"+url.PathEscape(orderID)+"/reject"), accessToken, nil)
}

func (c *Client) CancelOrder(ctx context.Context, accessToken, businessID, orderID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/orders/"+url.PathEscape(orderID)+"/cancel"), accessToken, nil)
}

func (c *Client) Candidates(ctx context.Context, accessToken, businessID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodGet, businessPath(businessID, "/candidates"), accessToken, nil)
}

func (c *Client) Hire(ctx context.Context, accessToken, businessID, candidateID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/employees/hire"), accessToken, map[string]any{
		"candidate_id": candidateID,
	})
}

func (c *Client) Specialize(ctx context.Context, accessToken, businessID, employeeID, skill string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/employees/"+url.PathEscape(employeeID)+"/specialize"), accessToken, map[string]any{
		"skill": skill,
	})
}

func (c *Client) BuyInventory(ctx context.Context, accessToken, businessID, itemID string, qty int) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/inventory/buy"), accessToken, map[string]any{
		"item_id":  itemID,
		"quantity": qty,
	})
}

func (c *Client) BuyTool(ctx context.Context, accessToken, businessID, toolID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/tools/buy"), accessToken, map[string]any{
		"tool_id": toolID,
	})
}

func (c *Client) Trade(ctx context.Context, accessToken, businessID, symbol, side string, shares int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, businessPath(businessID, "/stocks/trade"), accessToken, map[string]any{
		"symbol": symbol,
		"side":   side,
		"shares": shares,
	})
}

func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, accessToken, in, &out)
	return out, err
}

func businessPath(businessID, suffix string) string {
	return "/v1/businesses/" + url.PathEscape(businessID) + suffix
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorMessage pulls "error" out of the API's JSON error body and falls back
// to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
