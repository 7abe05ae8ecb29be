package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls the marketplace endpoints on behalf of one bearer token.
// A Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New returns a Client for the marketplace at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bearer token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetCart returns the server cart. A 404 is an empty cart.
func (c *Client) GetCart(ctx context.Context) ([]CartLine, error) {
	var p CartPayload
	err := c.do(ctx, http.MethodGet, "/cart", nil, &p)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

// PutCart replaces the server cart with lines.
func (c *Client) PutCart(ctx context.Context, lines []CartLine) error {
	if lines == nil {
		lines = []CartLine{}
	}
	return c.do(ctx, http.MethodPut, "/cart", CartPayload{Items: lines}, nil)
}

// SaveProfile stores shipping details on the user profile.
func (c *Client) SaveProfile(ctx context.Context, p Profile) error {
	return c.do(ctx, http.MethodPut, "/auth/profile", p, nil)
}

// Checkout places an order for the server cart.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	var resp CheckoutResponse
	if err := c.do(ctx, http.MethodPost, "/orders/checkout", req, &resp); err != nil {
		return CheckoutResponse{}, err
	}
	if resp.OrderID == "" {
		return CheckoutResponse{}, &Error{
			Code:   ErrCodeDecode,
			Op:     "POST /orders/checkout",
			Status: http.StatusOK,
			Err:    errors.New("response has no orderId"),
		}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	u := *c.base
	u.Path = c.base.Path + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "error", err)
		return &Error{Code: ErrCodeTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Code: ErrCodeDecode, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func responseError(op string, resp *http.Response) *Error {
	e := &Error{Code: codeForStatus(resp.StatusCode), Op: op, Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		e.Err = err
		return e
	}
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		e.Message = eb.Error
	} else if s := strings.TrimSpace(string(data)); s != "" && !strings.HasPrefix(s, "{") {
		e.Message = s
	}
	return e
}
