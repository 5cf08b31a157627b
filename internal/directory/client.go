// Package directory is the client for the remote identity/user directory:
// looking up the addresses associated with an identity token and registering
// new ones.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/apierror"
)

// ErrNotFound is returned by Lookup when the directory has no record of the token.
var ErrNotFound = errors.New("directory: identity not found")

// Client talks to the directory API. It performs exactly one request per call.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("directory: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("directory: base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lookup fetches the addresses associated with token.
// A 404 yields ErrNotFound; other failures yield an *apierror.Error.
func (c *Client) Lookup(ctx context.Context, token string) (Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("people", token), nil)
	if err != nil {
		return Person{}, fmt.Errorf("directory: build lookup: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return Person{}, apierror.Network("Error fetching data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Person{}, ErrNotFound
	}
	if err := apierror.Check(resp); err != nil {
		return Person{}, err
	}
	var p Person
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Person{}, apierror.Network("Error fetching data", fmt.Errorf("decode person: %w", err))
	}
	return p, nil
}

// Register creates a new address for reg.IdentityToken. It is never retried.
func (c *Client) Register(ctx context.Context, reg Registration) (Record, error) {
	body, err := json.Marshal(reg)
	if err != nil {
		return Record{}, fmt.Errorf("directory: encode registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("users"), bytes.NewReader(body))
	if err != nil {
		return Record{}, fmt.Errorf("directory: build register: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return Record{}, apierror.Network("Error creating user", err)
	}
	defer resp.Body.Close()

	if err := apierror.Check(resp); err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return Record{}, apierror.Network("Error creating user", fmt.Errorf("decode record: %w", err))
	}
	return rec, nil
}

// endpoint escapes each segment on its own so tokens containing "/" stay one segment.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base.String())
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	ev := c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("directory request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("directory request")
	return resp, nil
}
