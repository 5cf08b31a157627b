// Package mailstore is the client for the remote mail store. Every call is
// authenticated with the account address and password sent as plaintext
// request headers named exactly "email" and "password".
package mailstore

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

	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/apierror"
)

const (
	HeaderEmail    = "email"
	HeaderPassword = "password"
)

// Credentials identify a mail-store account.
type Credentials struct {
	Email    string
	Password string
}

// Message is a stored mail message.
type Message struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender_email"`
	Receiver      string    `json:"receiver_email"`
	Tag           string    `json:"email_tag"`
	IdentityToken string    `json:"mitid_username"`
	Text          string    `json:"text"`
	Date          time.Time `json:"date"`
}

// Draft is an outgoing message.
type Draft struct {
	Text     string `json:"text"`
	Sender   string `json:"sender_email"`
	Receiver string `json:"receiver_email"`
}

// Account is the authenticated user's record.
type Account struct {
	Email         string `json:"email"`
	AccountType   string `json:"account_type"`
	Purpose       string `json:"email_purpose"`
	IdentityToken string `json:"mitid_username"`
}

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

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("mailstore: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("mailstore: base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: http.DefaultClient, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me returns the account behind creds. It doubles as the login check.
func (c *Client) Me(ctx context.Context, creds Credentials) (Account, error) {
	var acct Account
	err := c.call(ctx, creds, http.MethodGet, c.endpoint("users"), nil, &acct)
	return acct, err
}

// List returns every message the account sent or received.
func (c *Client) List(ctx context.Context, creds Credentials) ([]Message, error) {
	var msgs []Message
	if err := c.call(ctx, creds, http.MethodGet, c.endpoint("emails"), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send stores d as a new message.
func (c *Client) Send(ctx context.Context, creds Credentials, d Draft) error {
	return c.call(ctx, creds, http.MethodPost, c.endpoint("emails"), d, nil)
}

// Delete removes the message with the given id.
func (c *Client) Delete(ctx context.Context, creds Credentials, id string) error {
	return c.call(ctx, creds, http.MethodDelete, c.endpoint("emails", id), nil, nil)
}

func (c *Client) call(ctx context.Context, creds Credentials, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("mailstore: encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("mailstore: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Assigned directly so the lower-case names go out on the wire unchanged.
	req.Header[HeaderEmail] = []string{creds.Email}
	req.Header[HeaderPassword] = []string{creds.Password}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", req.URL.Path).Err(err).Msg("mailstore request failed")
		return apierror.Network("Error contacting mail server", err)
	}
	defer resp.Body.Close()
	c.log.Debug().
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("mailstore request")

	if err := apierror.Check(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mailstore: decode response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base.String())
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
