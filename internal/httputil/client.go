// Package httputil provides the HTTP client used by layoutctl to talk to the
// layout service.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/services/layouts"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/tidwall/gjson"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap maps the response code back to the service error kind, so
// errors.Is(err, svcerrors.ErrNotFound) works on client errors.
func (e *APIError) Unwrap() error {
	switch svcerrors.Kind(e.Code) {
	case svcerrors.KindDuplicateID:
		return svcerrors.ErrDuplicateID
	case svcerrors.KindNotFound:
		return svcerrors.ErrNotFound
	case svcerrors.KindDivisionByZero:
		return svcerrors.ErrDivisionByZero
	case svcerrors.KindMalformedInput:
		return svcerrors.ErrMalformedInput
	case svcerrors.KindIOFailure:
		return svcerrors.ErrIOFailure
	case svcerrors.KindRateLimited:
		return svcerrors.ErrRateLimited
	}
	return nil
}

// Client calls the layout service REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	backoff    time.Duration
}

// ClientConfig configures the client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	backoff := cfg.Backoff
	if backoff == 0 {
		backoff = 200 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Do executes a request and returns the raw response body of a 2xx reply.
// Reads are retried on 429 and 5xx gateway errors; mutations are not, so a
// retried request can never apply twice.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		respBody, status, err := c.once(ctx, method, path, payload)
		if err == nil && status < 300 {
			return respBody, nil
		}
		retryable := method == http.MethodGet && attempt < c.maxRetries &&
			(err != nil || status == http.StatusTooManyRequests || status == http.StatusBadGateway || status == http.StatusServiceUnavailable)
		if !retryable {
			if err != nil {
				return nil, err
			}
			return nil, parseAPIError(status, respBody)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBody)
	if resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	if gjson.ValidBytes(body) {
		apiErr.Message = gjson.GetBytes(body, "error").String()
		apiErr.Code = gjson.GetBytes(body, "code").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// field decodes one top-level member of an envelope response.
func field(body []byte, name string, dst interface{}) error {
	res := gjson.GetBytes(body, name)
	if !res.Exists() {
		return fmt.Errorf("response has no %q field", name)
	}
	if err := json.Unmarshal([]byte(res.Raw), dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func whole(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Message extracts the confirmation message from an envelope response.
func Message(body []byte) string {
	return gjson.GetBytes(body, "message").String()
}

// CreateStore registers a store.
func (c *Client) CreateStore(ctx context.Context, st store.Store) (store.Store, string, error) {
	body, err := c.Do(ctx, http.MethodPost, "/store/", map[string]any{
		"id": st.ID, "name": st.Name, "num_columns": st.NumColumns, "modules_per_column": st.ModulesPerColumn,
	})
	if err != nil {
		return store.Store{}, "", err
	}
	var out store.Store
	if err := field(body, "store", &out); err != nil {
		return store.Store{}, "", err
	}
	return out, Message(body), nil
}

// GetStore fetches a store record.
func (c *Client) GetStore(ctx context.Context, id int) (store.Store, error) {
	body, err := c.Do(ctx, http.MethodGet, "/store/"+strconv.Itoa(id), nil)
	if err != nil {
		return store.Store{}, err
	}
	var out store.Store
	return out, whole(body, &out)
}

// ListStores lists stores ordered by id.
func (c *Client) ListStores(ctx context.Context) ([]store.Store, error) {
	body, err := c.Do(ctx, http.MethodGet, "/store/", nil)
	if err != nil {
		return nil, err
	}
	var out []store.Store
	return out, whole(body, &out)
}

// CreateCategory registers a category.
func (c *Client) CreateCategory(ctx context.Context, id int, name string) (category.Category, error) {
	body, err := c.Do(ctx, http.MethodPost, "/category/", map[string]any{"id": id, "name": name})
	if err != nil {
		return category.Category{}, err
	}
	var out category.Category
	return out, whole(body, &out)
}

// ListCategories lists categories ordered by id.
func (c *Client) ListCategories(ctx context.Context) ([]category.Category, error) {
	body, err := c.Do(ctx, http.MethodGet, "/category/", nil)
	if err != nil {
		return nil, err
	}
	var out []category.Category
	return out, whole(body, &out)
}

// GetLayout fetches a store's layout.
func (c *Client) GetLayout(ctx context.Context, storeID int) (layout.Layout, error) {
	body, err := c.Do(ctx, http.MethodGet, layoutPath(storeID), nil)
	if err != nil {
		return layout.Layout{}, err
	}
	var out layout.Layout
	return out, whole(body, &out)
}

// PutLayout replaces a store's layout.
func (c *Client) PutLayout(ctx context.Context, storeID int, l layout.Layout) (layout.Layout, string, error) {
	body, err := c.Do(ctx, http.MethodPut, layoutPath(storeID), l)
	if err != nil {
		return layout.Layout{}, "", err
	}
	var out layout.Layout
	if err := field(body, "store_layout", &out); err != nil {
		return layout.Layout{}, "", err
	}
	return out, Message(body), nil
}

// Share fetches category id -> percentage for a store.
func (c *Client) Share(ctx context.Context, storeID int) (map[int]float64, error) {
	body, err := c.Do(ctx, http.MethodGet, layoutPath(storeID)+"/share", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[int]float64)
	var parseErr error
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("share key %q is not a category id", key.String())
			return false
		}
		out[id] = value.Float()
		return true
	})
	return out, parseErr
}

// AddModule appends a module to the store's layout.
func (c *Client) AddModule(ctx context.Context, storeID int) (layout.Module, error) {
	body, err := c.Do(ctx, http.MethodPost, layoutPath(storeID)+"/modules", nil)
	if err != nil {
		return layout.Module{}, err
	}
	var out layout.Module
	return out, field(body, "module", &out)
}

// RemoveModule deletes a module; unknown ids are a no-op on the server.
func (c *Client) RemoveModule(ctx context.Context, storeID, moduleID int) (layout.Layout, error) {
	body, err := c.Do(ctx, http.MethodDelete, modulePath(storeID, moduleID), nil)
	if err != nil {
		return layout.Layout{}, err
	}
	var out layout.Layout
	return out, field(body, "store_layout", &out)
}

// UpdateModule edits one module.
func (c *Client) UpdateModule(ctx context.Context, storeID, moduleID int, u layouts.ModuleUpdate) (layout.Module, error) {
	body, err := c.Do(ctx, http.MethodPatch, modulePath(storeID, moduleID), u)
	if err != nil {
		return layout.Module{}, err
	}
	var out layout.Module
	return out, field(body, "module", &out)
}

// Snap asks the service to snap a position; unit 0 uses the default grid.
func (c *Client) Snap(ctx context.Context, p layout.Position, unit int) (layout.Position, error) {
	req := map[string]any{"x": p.X, "y": p.Y}
	if unit != 0 {
		req["grid_unit"] = unit
	}
	body, err := c.Do(ctx, http.MethodPost, "/grid/snap", req)
	if err != nil {
		return layout.Position{}, err
	}
	var out layout.Position
	return out, whole(body, &out)
}

// ImportResult is the service's answer to a snapshot import.
type ImportResult struct {
	Message string
	Store   store.Store
	Layout  layout.Layout
	Created bool
}

// Import uploads a snapshot, creating its store if needed.
func (c *Client) Import(ctx context.Context, l layout.Layout) (ImportResult, error) {
	body, err := c.Do(ctx, http.MethodPost, "/store-layout/import", l)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Message: Message(body), Created: gjson.GetBytes(body, "created").Bool()}
	if err := field(body, "store", &res.Store); err != nil {
		return ImportResult{}, err
	}
	if err := field(body, "store_layout", &res.Layout); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func layoutPath(storeID int) string {
	return "/store-layout/" + strconv.Itoa(storeID)
}

func modulePath(storeID, moduleID int) string {
	return layoutPath(storeID) + "/modules/" + strconv.Itoa(moduleID)
}
