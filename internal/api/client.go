// Package api is the typed REST client for the neighborhood API server.
package api

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

	"hoodlink/internal/models"
	"hoodlink/internal/observability"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token() string { return string(t) }

// Client is a REST API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Tokens:     tokens,
	}
}

// request describes one call. route is the path template used for metrics
// and span names, path the concrete path.
type request struct {
	method      string
	route       string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, route, path string, payload any) (request, error) {
	req := request{method: method, route: route, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("encode %s: %w", route, err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// do performs the request and returns the raw response body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	span, ctx := observability.StartAPISpan(ctx, r.method, r.route)
	defer span.End()

	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		observability.ObserveAPIRequest(r.route, 0, start)
		span.SetError(err)
		return nil, models.NewTransportError(r.method+" "+r.route, err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveAPIRequest(r.route, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetError(err)
		return nil, models.NewTransportError(r.method+" "+r.route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := models.NewAPIError(resp.StatusCode, errorMessage(respBody))
		span.SetError(appErr)
		return nil, appErr
	}
	return respBody, nil
}

// errorMessage extracts a message from an error body on a best-effort basis.
func errorMessage(body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", r.route, err)
	}
	return nil
}

// listKeys are the wrapper keys list endpoints may nest their array under.
var listKeys = []string{"conversations", "messages", "data", "items", "results", "posts", "comments", "reactions", "businesses", "events", "reviews", "products"}

// decodeList accepts either a bare JSON array or an object wrapping one.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}
	if body[0] == '[' {
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range listKeys {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		return decodeList[T](raw)
	}
	return nil, fmt.Errorf("no list found in response object")
}

func getList[T any](ctx context.Context, c *Client, route, path string, query url.Values) ([]T, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, route: route, path: path, query: query})
	if err != nil {
		return nil, err
	}
	out, err := decodeList[T](body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", route, err)
	}
	return out, nil
}

// decodeOne accepts either the object itself or an object wrapping it under key.
func decodeOne(body []byte, key string, out any) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err == nil {
		if raw, ok := wrapper[key]; ok && len(raw) > 0 && raw[0] == '{' {
			return json.Unmarshal(raw, out)
		}
	}
	return json.Unmarshal(body, out)
}

func (c *Client) getOne(ctx context.Context, route, path, key string, out any) error {
	body, err := c.do(ctx, request{method: http.MethodGet, route: route, path: path})
	if err != nil {
		return err
	}
	if err := decodeOne(body, key, out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}

func (c *Client) sendOne(ctx context.Context, method, route, path, key string, payload, out any) error {
	r, err := jsonRequest(method, route, path, payload)
	if err != nil {
		return err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := decodeOne(body, key, out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}

func escape(id fmt.Stringer) string {
	return url.PathEscape(id.String())
}
