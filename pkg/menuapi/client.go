package menuapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
	"github.com/vanderheijden86/menuadmin/pkg/version"
)

const (
	menusPath      = "/api/menus"
	defaultTimeout = 10 * time.Second
	// maxBodyBytes caps how much of a response we are willing to buffer.
	maxBodyBytes = 8 << 20
)

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// It has no effect after WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a client for the service rooted at baseURL, e.g.
// "http://localhost:3000". A trailing slash is ignored.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("menuapi: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "menuapi: invalid base URL %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("menuapi: base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: version.UserAgent(),
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches the forest. Flat responses (nodes carrying parentId but no
// children) are assembled into a forest.
func (c *Client) List(ctx context.Context) ([]model.MenuNode, error) {
	var nodes []model.MenuNode
	if err := c.do(ctx, http.MethodGet, menusPath, nil, &nodes); err != nil {
		return nil, err
	}
	return tree.Normalize(nodes), nil
}

func (c *Client) Create(ctx context.Context, in model.MenuInput) (model.MenuNode, error) {
	if err := in.Validate(); err != nil {
		return model.MenuNode{}, err
	}
	var node model.MenuNode
	err := c.do(ctx, http.MethodPost, menusPath, in, &node)
	return node, err
}

func (c *Client) Update(ctx context.Context, id string, in model.MenuInput) (model.MenuNode, error) {
	if err := requireID(id); err != nil {
		return model.MenuNode{}, err
	}
	if err := in.Validate(); err != nil {
		return model.MenuNode{}, err
	}
	var node model.MenuNode
	err := c.do(ctx, http.MethodPut, nodePath(id), in, &node)
	return node, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, nodePath(id), nil, nil)
}

func (c *Client) Move(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	if err := requireID(id); err != nil {
		return model.MenuNode{}, err
	}
	var node model.MenuNode
	err := c.do(ctx, http.MethodPatch, nodePath(id)+"/move", p, &node)
	return node, err
}

func (c *Client) Reorder(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	if err := requireID(id); err != nil {
		return model.MenuNode{}, err
	}
	var node model.MenuNode
	err := c.do(ctx, http.MethodPatch, nodePath(id)+"/reorder", p, &node)
	return node, err
}

func nodePath(id string) string {
	return menusPath + "/" + url.PathEscape(id)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("menuapi: id is required")
	}
	return nil
}

// do performs one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", method, path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s %s", method, path), ErrRemote)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "reading %s %s response", method, path), ErrRemote)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, method, path, data)
	}
	if out == nil {
		return nil
	}
	if err := decodePayload(data, out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decoding %s %s response", method, path), ErrRemote)
	}
	return nil
}

// decodePayload accepts either the bare value or a {"data": value}
// envelope. An empty body leaves out untouched.
func decodePayload(data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err == nil {
			inner, hasData := envelope["data"]
			_, hasID := envelope["id"]
			if hasData && !hasID {
				data = inner
			}
		}
	}
	return json.Unmarshal(data, out)
}
