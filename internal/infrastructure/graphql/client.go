package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ledgersync/backend/internal/domain/integration"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 20 * 1024 * 1024 // 20MB max response

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrMalformedPagedQuery indicates a query that does not declare the
	// pagination contract and therefore cannot be driven by FetchAll
	ErrMalformedPagedQuery = errors.New("graphql: query does not declare the pagination contract")
)

// TransportError is returned when the provider's response cannot be used. It
// carries the request payload, the endpoint and the raw response body so the
// failure can be diagnosed from the status log alone.
type TransportError struct {
	// Endpoint is the URL the request was sent to
	Endpoint string
	// Query is the query text that was sent
	Query string
	// Variables are the variables that were sent
	Variables map[string]any
	// StatusCode is the HTTP status, zero when the response never arrived
	StatusCode int
	// Body is the raw response body
	Body []byte
	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("graphql: transport error from %s (status %d): %v; body: %s",
		e.Endpoint, e.StatusCode, e.Err, truncate(e.Body, 512))
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

// Document is a parsed query response
type Document map[string]any

// DecodeAt unmarshals the value at a dot-separated path into out. It is how
// adapters move from the generic document to their typed response schemas.
func (d Document) DecodeAt(path string, out any) error {
	value, err := valueAt(d, path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("graphql: failed to re-encode value at %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("graphql: failed to decode value at %q: %w", path, err)
	}
	return nil
}

// valueAt walks a dot-separated path through nested objects
func valueAt(d Document, path string) (any, error) {
	var current any = map[string]any(d)
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("graphql: value at %q is not an object while resolving %q", key, path)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("graphql: response has no field %q at path %q", key, path)
		}
	}
	return current, nil
}

// PageInfo is the pagination descriptor every paged field must expose
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// connection is the paged field shape: a node list plus a PageInfo
type connection struct {
	container map[string]any
	nodes     []any
	pageInfo  PageInfo
}

// connectionAt extracts the paged field at the given path
func connectionAt(d Document, path string) (*connection, error) {
	value, err := valueAt(d, path)
	if err != nil {
		return nil, err
	}
	container, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("graphql: paged field at %q is not an object", path)
	}
	rawNodes, ok := container["nodes"]
	if !ok {
		return nil, fmt.Errorf("graphql: paged field at %q has no node list", path)
	}
	nodes, ok := rawNodes.([]any)
	if !ok {
		return nil, fmt.Errorf("graphql: node list at %q is not an array", path)
	}
	rawInfo, ok := container["pageInfo"]
	if !ok {
		return nil, fmt.Errorf("graphql: paged field at %q has no pageInfo", path)
	}
	infoObj, ok := rawInfo.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("graphql: pageInfo at %q is not an object", path)
	}
	var info PageInfo
	if v, ok := infoObj["hasNextPage"].(bool); ok {
		info.HasNextPage = v
	}
	if v, ok := infoObj["endCursor"].(string); ok {
		info.EndCursor = v
	}
	return &connection{container: container, nodes: nodes, pageInfo: info}, nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client executes cursor-paginated queries against one provider endpoint.
// Each instance owns its own rate-limiter state: consecutive requests from the
// same instance are spaced by at least the configured interval, serialized by
// a per-instance mutex. Two different client instances proceed independently.
type Client struct {
	endpoint    string
	headers     map[string]string
	httpClient  *http.Client
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHeader adds a header sent on every request
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.headers[name] = value
	}
}

// WithMinInterval sets the minimum wall-clock interval between requests
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.minInterval = interval
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for one provider endpoint
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("graphql: endpoint cannot be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		headers:    make(map[string]string),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// reserve enforces the minimum interval between requests of this instance.
// The mutex is held across the wait so concurrent callers serialize.
func (c *Client) reserve(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.minInterval > 0 && !c.lastCall.IsZero() {
		if wait := time.Until(c.lastCall.Add(c.minInterval)); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastCall = time.Now()
	return nil
}

// Execute sends one query and parses the JSON response into a Document
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (Document, error) {
	if err := c.reserve(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("graphql: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("graphql: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", integration.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("graphql: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Endpoint:   c.endpoint,
			Query:      query,
			Variables:  variables,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        integration.ErrRequestFailed,
		}
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &TransportError{
			Endpoint:   c.endpoint,
			Query:      query,
			Variables:  variables,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err),
		}
	}
	return doc, nil
}

// FetchAll drives the query through every page and returns the first response
// document with its node list replaced by the accumulation of all pages. The
// query must declare the pagination contract ($limit/$cursor, referenced as
// first/after on the paged field); malformed queries fail before any request.
func (c *Client) FetchAll(ctx context.Context, query, resultPath string, variables map[string]any) (Document, error) {
	if err := ValidatePagedQuery(query); err != nil {
		return nil, err
	}

	vars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}
	vars["cursor"] = nil

	var (
		firstDoc  Document
		firstConn *connection
		allNodes  []any
	)

	for {
		doc, err := c.Execute(ctx, query, vars)
		if err != nil {
			return nil, err
		}
		conn, err := connectionAt(doc, resultPath)
		if err != nil {
			return nil, err
		}

		allNodes = append(allNodes, conn.nodes...)
		if firstDoc == nil {
			firstDoc = doc
			firstConn = conn
		}

		if !conn.pageInfo.HasNextPage {
			break
		}
		vars["cursor"] = conn.pageInfo.EndCursor
	}

	firstConn.container["nodes"] = allNodes
	return firstDoc, nil
}

// ValidatePagedQuery checks that the query declares the pagination contract
// exactly once: a $limit page-size variable and a $cursor variable, each
// declared once and each referenced once in the paged field's arguments.
func ValidatePagedQuery(query string) error {
	checks := []struct {
		token string
		want  string
	}{
		{"$limit:", "page-size declaration ($limit)"},
		{"$cursor:", "cursor declaration ($cursor)"},
		{"first: $limit", "page-size argument (first: $limit)"},
		{"after: $cursor", "cursor argument (after: $cursor)"},
	}
	for _, check := range checks {
		switch n := strings.Count(query, check.token); {
		case n == 0:
			return fmt.Errorf("%w: missing %s", ErrMalformedPagedQuery, check.want)
		case n > 1:
			return fmt.Errorf("%w: %s appears %d times, want exactly one", ErrMalformedPagedQuery, check.want, n)
		}
	}
	return nil
}

// isTimeout reports whether the request failed because time ran out rather
// than because the provider rejected it
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
