package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client talks to the touchrank HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Events lists the open events.
func (c *Client) Events(ctx context.Context) ([]types.EventSummary, error) {
	var out []types.EventSummary
	if err := c.do(ctx, http.MethodGet, "/events", nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// CreateEvent opens an event.
func (c *Client) CreateEvent(ctx context.Context, name string) (types.EventSummary, error) {
	var out types.EventSummary
	if err := c.do(ctx, http.MethodPost, "/events", types.CreateEventRequest{Name: name}, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Register adds competitors to an event.
func (c *Client) Register(ctx context.Context, eventID string, entrants []model.Entrant) (types.EventSummary, error) {
	var out types.EventSummary
	if err := c.do(ctx, http.MethodPost, eventPath(eventID, "competitors"), types.RegisterRequest{Competitors: entrants}, &out); err != nil {
		return out, err
	}
	return out, nil
}

// IngestPool posts a pool sheet.
func (c *Client) IngestPool(ctx context.Context, eventID string, sheet ingest.PoolSheet) (ingest.PoolReport, error) { //nolint:gocritic // hugeParam
	var out ingest.PoolReport
	if err := c.do(ctx, http.MethodPost, eventPath(eventID, "pools"), sheet, &out); err != nil {
		return out, err
	}
	return out, nil
}

// AddBout posts a single bout.
func (c *Client) AddBout(ctx context.Context, eventID string, bout ingest.Bout) (ingest.BoutReport, error) {
	var out ingest.BoutReport
	if err := c.do(ctx, http.MethodPost, eventPath(eventID, "bouts"), bout, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Standings returns the current standings.
func (c *Client) Standings(ctx context.Context, eventID string) (types.StandingsResponse, error) {
	var out types.StandingsResponse
	if err := c.do(ctx, http.MethodGet, eventPath(eventID, "standings"), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Predict returns the prediction for a against b.
func (c *Client) Predict(ctx context.Context, eventID, a, b string) (model.Prediction, error) {
	q := url.Values{"a": {a}, "b": {b}}
	var out model.Prediction
	if err := c.do(ctx, http.MethodGet, eventPath(eventID, "predict")+"?"+q.Encode(), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// SetBracket seeds the bracket, seed 1 first.
func (c *Client) SetBracket(ctx context.Context, eventID string, seeds []string) (types.BracketResponse, error) {
	var out types.BracketResponse
	if err := c.do(ctx, http.MethodPut, eventPath(eventID, "bracket"), types.BracketRequest{Seeds: seeds}, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Simulate runs n bracket trials; n <= 0 uses the server default.
func (c *Client) Simulate(ctx context.Context, eventID string, n int) (model.SimulationResult, error) {
	path := eventPath(eventID, "simulate")
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}
	var out model.SimulationResult
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

func eventPath(eventID, resource string) string {
	return "/events/" + url.PathEscape(eventID) + "/" + resource
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var e types.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
