// Package webmail drives the mail client screens: login, a paged inbox,
// compose and message detail. Like the wizard controller it never blocks;
// network work is handed out as Tasks and results return through Apply.
package webmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/apierror"
	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/mailstore"
)

// Store is the subset of the mail-store client the controller uses.
type Store interface {
	Me(ctx context.Context, creds mailstore.Credentials) (mailstore.Account, error)
	List(ctx context.Context, creds mailstore.Credentials) ([]mailstore.Message, error)
	Send(ctx context.Context, creds mailstore.Credentials, d mailstore.Draft) error
	Delete(ctx context.Context, creds mailstore.Credentials, id string) error
}

// View identifies a mail client screen.
type View int

const (
	ViewLogin View = iota
	ViewInbox
	ViewCompose
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewInbox:
		return "inbox"
	case ViewCompose:
		return "compose"
	case ViewDetail:
		return "detail"
	}
	return "unknown"
}

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidRecipient   = errors.New("please enter a valid recipient address")
	ErrSelfSend           = errors.New("you cannot send an email to yourself")
	ErrEmptyMessage       = errors.New("message text cannot be empty")
	ErrNoMessage          = errors.New("no message selected")
	ErrRequestPending     = errors.New("a request is already in progress")
	ErrWrongView          = errors.New("action not available on this screen")
)

// loginFailed is shown on the login screen for rejected credentials.
const loginFailed = "Invalid email or password"

const (
	DefaultPageSize = 10
	PreviewLength   = 100
)

type Options struct {
	PageSize int
	Logger   zerolog.Logger
}

type session struct {
	id      uuid.UUID
	creds   mailstore.Credentials
	account mailstore.Account
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *session) close() {
	if s != nil {
		s.cancel()
	}
}

// Controller holds the mail client's state. Use it from a single goroutine.
type Controller struct {
	store    Store
	opts     Options
	log      zerolog.Logger
	base     context.Context
	view     View
	errs     map[View]string
	status   string
	session  *session
	messages []mailstore.Message
	page     int
	current  *mailstore.Message
	pending  bool
}

func NewController(ctx context.Context, store Store, opts Options) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Controller{
		store: store,
		opts:  opts,
		log:   opts.Logger,
		base:  ctx,
		errs:  map[View]string{},
		page:  1,
	}
}

func (c *Controller) Active() View { return c.view }

func (c *Controller) Error(v View) string { return c.errs[v] }

// Status is a transient confirmation line ("Email sent").
func (c *Controller) Status() string { return c.status }

func (c *Controller) Pending() bool { return c.pending }

// Account returns the logged-in account, if any.
func (c *Controller) Account() (mailstore.Account, bool) {
	if c.session == nil || c.view == ViewLogin {
		return mailstore.Account{}, false
	}
	return c.session.account, true
}

// Current returns the message open in the detail view.
func (c *Controller) Current() (mailstore.Message, bool) {
	if c.current == nil {
		return mailstore.Message{}, false
	}
	return *c.current, true
}

// Login checks the credentials against the store and loads the inbox.
func (c *Controller) Login(email, password string) (Task, error) {
	if c.view != ViewLogin {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		c.errs[ViewLogin] = ErrMissingCredentials.Error()
		return Task{}, ErrMissingCredentials
	}
	delete(c.errs, ViewLogin)

	c.session.close()
	ctx, cancel := context.WithCancel(c.base)
	s := &session{id: uuid.New(), creds: mailstore.Credentials{Email: email, Password: password}, ctx: ctx, cancel: cancel}
	c.session = s
	store, creds := c.store, s.creds
	return c.task(s, "login", func(ctx context.Context) Event {
		acct, err := store.Me(ctx, creds)
		if err != nil {
			return LoginDone{Session: s.id, Err: err}
		}
		msgs, listErr := store.List(ctx, creds)
		return LoginDone{Session: s.id, Account: acct, Messages: msgs, ListErr: listErr}
	}), nil
}

// Refresh reloads the inbox.
func (c *Controller) Refresh() (Task, error) {
	if c.view != ViewInbox {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	c.status = ""
	s := c.session
	store, creds := c.store, s.creds
	return c.task(s, "refresh", func(ctx context.Context) Event {
		msgs, err := store.List(ctx, creds)
		return InboxLoaded{Session: s.id, Messages: msgs, Err: err}
	}), nil
}

// Compose opens the compose screen.
func (c *Controller) Compose() error {
	if c.view != ViewInbox {
		return ErrWrongView
	}
	delete(c.errs, ViewCompose)
	c.status = ""
	c.activate(ViewCompose)
	return nil
}

// Send validates the draft and returns the send task.
func (c *Controller) Send(to, text string) (Task, error) {
	if c.view != ViewCompose {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	to = strings.TrimSpace(to)
	var err error
	switch {
	case !directory.ValidAddress(to):
		err = ErrInvalidRecipient
	case to == c.session.creds.Email:
		err = ErrSelfSend
	case strings.TrimSpace(text) == "":
		err = ErrEmptyMessage
	}
	if err != nil {
		c.errs[ViewCompose] = err.Error()
		return Task{}, err
	}
	delete(c.errs, ViewCompose)

	s := c.session
	store, creds := c.store, s.creds
	draft := mailstore.Draft{Text: text, Sender: creds.Email, Receiver: to}
	return c.task(s, "send", func(ctx context.Context) Event {
		if err := store.Send(ctx, creds, draft); err != nil {
			return SendDone{Session: s.id, Err: err}
		}
		msgs, listErr := store.List(ctx, creds)
		return SendDone{Session: s.id, Messages: msgs, ListErr: listErr}
	}), nil
}

// Open shows the i-th message of the current page.
func (c *Controller) Open(i int) error {
	if c.view != ViewInbox {
		return ErrWrongView
	}
	page := c.Page()
	if i < 0 || i >= len(page) {
		return ErrNoMessage
	}
	msg := page[i]
	c.current = &msg
	c.status = ""
	delete(c.errs, ViewDetail)
	c.activate(ViewDetail)
	return nil
}

// Delete removes the open message and reloads the inbox.
func (c *Controller) Delete() (Task, error) {
	if c.view != ViewDetail {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	if c.current == nil {
		return Task{}, ErrNoMessage
	}
	s := c.session
	store, creds, id := c.store, s.creds, c.current.ID
	return c.task(s, "delete", func(ctx context.Context) Event {
		if err := store.Delete(ctx, creds, id); err != nil {
			return DeleteDone{Session: s.id, ID: id, Err: err}
		}
		msgs, listErr := store.List(ctx, creds)
		return DeleteDone{Session: s.id, ID: id, Messages: msgs, ListErr: listErr}
	}), nil
}

// Back returns from compose or detail to the inbox.
func (c *Controller) Back() error {
	if c.view != ViewCompose && c.view != ViewDetail {
		return ErrWrongView
	}
	c.current = nil
	c.activate(ViewInbox)
	return nil
}

// Logout forgets the credentials and returns to login.
func (c *Controller) Logout() {
	c.session.close()
	c.session = nil
	c.messages = nil
	c.current = nil
	c.page = 1
	c.pending = false
	c.status = ""
	c.errs = map[View]string{}
	c.activate(ViewLogin)
}

// Apply feeds a task result back in. Results from a previous login are dropped.
func (c *Controller) Apply(ev Event) bool {
	if c.session == nil || ev.SessionID() != c.session.id {
		c.log.Debug().Str("session", ev.SessionID().String()).Msg("dropping stale result")
		return false
	}
	c.pending = false
	switch e := ev.(type) {
	case LoginDone:
		if e.Err != nil {
			c.errs[ViewLogin] = loginMessage(e.Err)
			c.session.close()
			c.session = nil
			return true
		}
		c.session.account = e.Account
		c.page = 1
		c.loaded(e.Messages, e.ListErr)
		c.activate(ViewInbox)
	case InboxLoaded:
		c.loaded(e.Messages, e.Err)
	case SendDone:
		if e.Err != nil {
			c.errs[ViewCompose] = e.Err.Error()
			return true
		}
		c.status = "Email sent"
		c.loaded(e.Messages, e.ListErr)
		c.activate(ViewInbox)
	case DeleteDone:
		if e.Err != nil {
			c.errs[ViewDetail] = e.Err.Error()
			return true
		}
		c.current = nil
		c.status = "Email deleted"
		c.loaded(e.Messages, e.ListErr)
		c.activate(ViewInbox)
	default:
		return false
	}
	return true
}

func (c *Controller) loaded(msgs []mailstore.Message, err error) {
	if err != nil {
		c.errs[ViewInbox] = fmt.Sprintf("Error fetching emails: %v", err)
		return
	}
	delete(c.errs, ViewInbox)
	sorted := make([]mailstore.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	c.messages = sorted
	if c.page > c.PageCount() {
		c.page = c.PageCount()
	}
}

func (c *Controller) task(s *session, name string, run func(ctx context.Context) Event) Task {
	c.pending = true
	return Task{Session: s.id, Name: name, ctx: s.ctx, run: run}
}

func (c *Controller) activate(v View) {
	prev := c.view
	c.view = v
	c.log.Info().Str("from", prev.String()).Str("to", v.String()).Msg("view transition")
}

// loginMessage keeps credential rejections generic but surfaces transport and
// server failures as-is.
func loginMessage(err error) string {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == 0 || apiErr.StatusCode >= http.StatusInternalServerError) {
		return apiErr.Error()
	}
	return loginFailed
}
