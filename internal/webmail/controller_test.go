package webmail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/rtic/internal/apierror"
	"github.com/jask/rtic/internal/mailstore"
)

type fakeStore struct {
	mu       sync.Mutex
	password string
	inbox    []mailstore.Message
	sent     []mailstore.Draft
	deleted  []string
	meErr    error
	sendErr  error
	delErr   error
	listErr  error
}

func (f *fakeStore) Me(ctx context.Context, creds mailstore.Credentials) (mailstore.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return mailstore.Account{}, f.meErr
	}
	if creds.Password != f.password {
		return mailstore.Account{}, &apierror.Error{StatusCode: http.StatusUnauthorized, Message: "Error 401 (Unauthorized): Invalid credentials"}
	}
	return mailstore.Account{Email: creds.Email, AccountType: "personal"}, nil
}

func (f *fakeStore) List(ctx context.Context, creds mailstore.Credentials) ([]mailstore.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]mailstore.Message, len(f.inbox))
	copy(out, f.inbox)
	return out, nil
}

func (f *fakeStore) Send(ctx context.Context, creds mailstore.Credentials, d mailstore.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, d)
	f.inbox = append(f.inbox, mailstore.Message{
		ID:       fmt.Sprintf("m%d", len(f.inbox)+1),
		Sender:   d.Sender,
		Receiver: d.Receiver,
		Text:     d.Text,
		Date:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, creds mailstore.Credentials, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	for i, m := range f.inbox {
		if m.ID == id {
			f.inbox = append(f.inbox[:i], f.inbox[i+1:]...)
			break
		}
	}
	return nil
}

func messages(n int) []mailstore.Message {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := make([]mailstore.Message, n)
	for i := range out {
		out[i] = mailstore.Message{
			ID:       fmt.Sprintf("m%d", i),
			Sender:   fmt.Sprintf("friend%d@example.com", i%3),
			Receiver: "me@example.com",
			Text:     fmt.Sprintf("message %d", i),
			Date:     base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func newController(store *fakeStore, pageSize int) *Controller {
	return NewController(context.Background(), store, Options{PageSize: pageSize, Logger: zerolog.Nop()})
}

func run(c *Controller, task Task) bool {
	return c.Apply(task.Run())
}

func login(t *testing.T, c *Controller) {
	t.Helper()
	task, err := c.Login("me@example.com", "secret")
	require.NoError(t, err)
	require.True(t, run(c, task))
	require.Equal(t, ViewInbox, c.Active())
}

func TestLoginRequiresBothFields(t *testing.T) {
	c := newController(&fakeStore{password: "secret"}, 10)
	for _, tc := range [][2]string{{"", "secret"}, {"me@example.com", ""}, {"   ", "x"}} {
		_, err := c.Login(tc[0], tc[1])
		require.ErrorIs(t, err, ErrMissingCredentials)
		require.Equal(t, ViewLogin, c.Active())
		require.False(t, c.Pending())
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	c := newController(&fakeStore{password: "secret"}, 10)
	task, err := c.Login("me@example.com", "wrong")
	require.NoError(t, err)
	require.True(t, c.Pending())
	require.True(t, run(c, task))
	require.Equal(t, ViewLogin, c.Active())
	require.Equal(t, "Invalid email or password", c.Error(ViewLogin))
	_, ok := c.Account()
	require.False(t, ok)
}

func TestLoginTransportFailureShowsCause(t *testing.T) {
	store := &fakeStore{meErr: apierror.Network("Error contacting mail server", fmt.Errorf("connection refused"))}
	c := newController(store, 10)
	task, err := c.Login("me@example.com", "secret")
	require.NoError(t, err)
	run(c, task)
	require.Equal(t, ViewLogin, c.Active())
	require.Contains(t, c.Error(ViewLogin), "connection refused")
}

func TestLoginLoadsInboxNewestFirst(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(3)}
	c := newController(store, 10)
	login(t, c)

	acct, ok := c.Account()
	require.True(t, ok)
	require.Equal(t, "me@example.com", acct.Email)

	page := c.Page()
	require.Len(t, page, 3)
	require.Equal(t, "m2", page[0].ID)
	require.Equal(t, "m0", page[2].ID)
	require.Equal(t, "You have 3 emails", c.CountLine())
}

func TestPaging(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(23)}
	c := newController(store, 10)
	login(t, c)

	require.Equal(t, 3, c.PageCount())
	require.Equal(t, 1, c.PageNumber())
	require.False(t, c.PrevPage())
	require.True(t, c.NextPage())
	require.True(t, c.NextPage())
	require.False(t, c.NextPage())
	require.Equal(t, 3, c.PageNumber())
	require.Len(t, c.Page(), 3)
	require.Equal(t, "m2", c.Page()[0].ID)
}

func TestEmptyInbox(t *testing.T) {
	c := newController(&fakeStore{password: "secret"}, 10)
	login(t, c)
	require.Equal(t, 1, c.PageCount())
	require.Empty(t, c.Page())
	require.Equal(t, "You have 0 emails", c.CountLine())
	require.ErrorIs(t, c.Open(0), ErrNoMessage)
}

func TestCountLineSingular(t *testing.T) {
	c := newController(&fakeStore{password: "secret", inbox: messages(1)}, 10)
	login(t, c)
	require.Equal(t, "You have 1 email", c.CountLine())
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", Preview("short"))
	long := strings.Repeat("é", PreviewLength+5)
	got := Preview(long)
	require.True(t, strings.HasSuffix(got, "..."))
	require.Equal(t, PreviewLength+3, len([]rune(got)))
	require.Equal(t, "a b", Preview("a\n  b"))
}

func TestComposeValidation(t *testing.T) {
	store := &fakeStore{password: "secret"}
	c := newController(store, 10)
	login(t, c)
	require.NoError(t, c.Compose())

	_, err := c.Send("me@example.com", "hi")
	require.ErrorIs(t, err, ErrSelfSend)
	_, err = c.Send("you@example.com", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	_, err = c.Send("nope", "hi")
	require.ErrorIs(t, err, ErrInvalidRecipient)
	require.Equal(t, ViewCompose, c.Active())
	require.Equal(t, ErrInvalidRecipient.Error(), c.Error(ViewCompose))
	require.Empty(t, store.sent)
}

func TestSendReturnsToInbox(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(2)}
	c := newController(store, 10)
	login(t, c)
	require.NoError(t, c.Compose())

	task, err := c.Send(" you@example.com ", "hello there")
	require.NoError(t, err)
	_, err = c.Send("you@example.com", "again")
	require.ErrorIs(t, err, ErrRequestPending)
	require.True(t, run(c, task))

	require.Equal(t, ViewInbox, c.Active())
	require.Equal(t, "Email sent", c.Status())
	require.Len(t, store.sent, 1)
	require.Equal(t, mailstore.Draft{Text: "hello there", Sender: "me@example.com", Receiver: "you@example.com"}, store.sent[0])
	require.Len(t, c.Messages(), 3)
	require.Equal(t, "hello there", c.Page()[0].Text)
}

func TestSendFailureStaysOnCompose(t *testing.T) {
	store := &fakeStore{password: "secret", sendErr: &apierror.Error{StatusCode: 403, Message: "Error 403 (Forbidden): Sender mismatch"}}
	c := newController(store, 10)
	login(t, c)
	require.NoError(t, c.Compose())
	task, err := c.Send("you@example.com", "hi")
	require.NoError(t, err)
	run(c, task)
	require.Equal(t, ViewCompose, c.Active())
	require.Contains(t, c.Error(ViewCompose), "Sender mismatch")
}

func TestOpenAndDelete(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(3)}
	c := newController(store, 10)
	login(t, c)

	require.NoError(t, c.Open(1))
	require.Equal(t, ViewDetail, c.Active())
	msg, ok := c.Current()
	require.True(t, ok)
	require.Equal(t, "m1", msg.ID)

	task, err := c.Delete()
	require.NoError(t, err)
	require.True(t, run(c, task))
	require.Equal(t, ViewInbox, c.Active())
	require.Equal(t, []string{"m1"}, store.deleted)
	require.Len(t, c.Messages(), 2)
	require.Equal(t, "Email deleted", c.Status())
	_, ok = c.Current()
	require.False(t, ok)
}

func TestDeleteFailureStaysOnDetail(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(1), delErr: &apierror.Error{StatusCode: 404, Message: "Error 404 (Not Found): Email not found"}}
	c := newController(store, 10)
	login(t, c)
	require.NoError(t, c.Open(0))
	task, err := c.Delete()
	require.NoError(t, err)
	run(c, task)
	require.Equal(t, ViewDetail, c.Active())
	require.Contains(t, c.Error(ViewDetail), "Email not found")
}

func TestDeleteOnLastPageClampsPage(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(11)}
	c := newController(store, 10)
	login(t, c)
	require.True(t, c.NextPage())
	require.NoError(t, c.Open(0))
	task, err := c.Delete()
	require.NoError(t, err)
	run(c, task)
	require.Equal(t, 1, c.PageCount())
	require.Equal(t, 1, c.PageNumber())
}

func TestRefreshListError(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(2)}
	c := newController(store, 10)
	login(t, c)
	store.listErr = fmt.Errorf("boom")
	task, err := c.Refresh()
	require.NoError(t, err)
	run(c, task)
	require.Contains(t, c.Error(ViewInbox), "boom")
	require.Len(t, c.Messages(), 2)
}

func TestLogoutDropsLateResults(t *testing.T) {
	store := &fakeStore{password: "secret", inbox: messages(2)}
	c := newController(store, 10)
	login(t, c)

	task, err := c.Refresh()
	require.NoError(t, err)
	c.Logout()
	require.Equal(t, ViewLogin, c.Active())
	require.False(t, c.Apply(task.Run()))
	require.Empty(t, c.Messages())
	_, ok := c.Account()
	require.False(t, ok)
}

func TestBackAndWrongView(t *testing.T) {
	c := newController(&fakeStore{password: "secret", inbox: messages(1)}, 10)
	require.ErrorIs(t, c.Compose(), ErrWrongView)
	_, err := c.Refresh()
	require.ErrorIs(t, err, ErrWrongView)
	login(t, c)
	_, err = c.Login("me@example.com", "secret")
	require.ErrorIs(t, err, ErrWrongView)
	require.ErrorIs(t, c.Back(), ErrWrongView)
	require.NoError(t, c.Compose())
	require.NoError(t, c.Back())
	require.Equal(t, ViewInbox, c.Active())
}

func TestSuggestRecipient(t *testing.T) {
	inbox := []mailstore.Message{
		{ID: "1", Sender: "alice@example.com", Receiver: "me@example.com"},
		{ID: "2", Sender: "me@example.com", Receiver: "bob@example.com"},
	}
	c := newController(&fakeStore{password: "secret", inbox: inbox}, 10)
	login(t, c)

	require.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, c.Correspondents())

	got, ok := c.SuggestRecipient("alcie@example.com")
	require.True(t, ok)
	require.Equal(t, "alice@example.com", got)

	_, ok = c.SuggestRecipient("alice@example.com")
	require.False(t, ok)
	_, ok = c.SuggestRecipient("carol@elsewhere.org")
	require.False(t, ok)
	_, ok = c.SuggestRecipient("")
	require.False(t, ok)
}
