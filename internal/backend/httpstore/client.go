// Package httpstore implements store.Store over a JSON collection API and
// provides the matching server handler.
package httpstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"taskboard/internal/task"
)

const (
	// DefaultBaseURL is the collection API address used when none is configured.
	DefaultBaseURL = "http://localhost:4000"

	// ResourcePath is the collection path under the base URL.
	ResourcePath = "/tasks"

	// APITimeout is the default timeout for API calls.
	APITimeout = 5 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4 << 10
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:4000.
	BaseURL string

	// Token, when set, is sent as a bearer token on every request.
	Token string

	// Timeout bounds each call. Zero means APITimeout.
	Timeout time.Duration
}

// Client implements store.Store against a remote collection endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a client with an instrumented transport.
func New(ctx context.Context, opts Options) (*Client, error) {
	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	hc := base
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}

	c, err := NewWithHTTPClient(opts.BaseURL, hc)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		c.timeout = opts.Timeout
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: APITimeout,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// List implements store.Store.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var out []task.Task
	if err := c.do(ctx, http.MethodGet, ResourcePath, 0, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create implements store.Store.
func (c *Client) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, ResourcePath, 0, in, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

// Update implements store.Store.
func (c *Client) Update(ctx context.Context, id int, p task.Patch) (task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPatch, itemPath(id), id, p, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

// Delete implements store.Store.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), id, nil, nil)
}

func itemPath(id int) string {
	return ResourcePath + "/" + strconv.Itoa(id)
}

// do performs one request. id is only used to build NotFound errors.
func (c *Client) do(ctx context.Context, method, path string, id int, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := method + " " + path

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, id, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &task.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// wrapError turns a failed round trip into a TransportError.
func wrapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &task.TransportError{Op: op, Err: fmt.Errorf("request timed out: %w", err)}
	}
	return &task.TransportError{Op: op, Err: err}
}

// statusError maps a non-success response onto the error taxonomy.
func statusError(op string, id int, resp *http.Response) error {
	body := readErrorBody(resp.Body)
	msg := body.Error

	switch resp.StatusCode {
	case http.StatusNotFound:
		if id != 0 {
			return &task.NotFoundError{ID: id}
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "rejected by server"
		}
		return &task.ValidationError{Field: body.Field, Reason: msg}
	}

	if msg == "" {
		return &task.TransportError{Op: op, Status: resp.StatusCode}
	}
	return &task.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
}

func readErrorBody(r io.Reader) errorBody {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return errorBody{}
	}
	var e errorBody
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e
	}
	return errorBody{Error: strings.TrimSpace(string(b))}
}

// errorBody is the error payload of the collection protocol.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
