package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/rtic/internal/apierror"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return c
}

func TestLookupFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/people/abc123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Person{IdentityToken: "abc123", Addresses: []string{"a@x.com", "b@x.com"}})
	})
	p, err := c.Lookup(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", p.IdentityToken)
	require.Equal(t, []string{"a@x.com", "b@x.com"}, p.Addresses)
}

func TestLookupEscapesToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/people/a%2Fb%20c", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"mitid_username":"a/b c","user_emails":[]}`))
	})
	p, err := c.Lookup(context.Background(), "a/b c")
	require.NoError(t, err)
	require.Empty(t, p.Addresses)
}

func TestLookupNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Person not found"}`))
	})
	_, err := c.Lookup(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"firestore unavailable"}`))
	})
	_, err := c.Lookup(context.Background(), "abc")
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "Error 500 (Internal Server Error): firestore unavailable", err.Error())
}

func TestLookupNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Lookup(context.Background(), "abc")
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	require.Zero(t, apiErr.StatusCode)
	require.Contains(t, err.Error(), "Error fetching data: ")
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{
			"mitid_username": "abc123",
			"email":          "new@x.com",
			"password":       "s3cret",
			"account_type":   "company",
			"email_purpose":  "newsletter",
		}, body)
		_, _ = w.Write([]byte(`{"message":"User created successfully","user":{"email":"new@x.com","account_type":"company","email_purpose":"newsletter","mitid_username":"abc123"}}`))
	})
	rec, err := c.Register(context.Background(), Registration{
		IdentityToken: "abc123",
		Address:       "new@x.com",
		Secret:        "s3cret",
		AccountType:   AccountCompany,
		Purpose:       PurposeNewsletter,
	})
	require.NoError(t, err)
	require.Equal(t, "User created successfully", rec.Message)
	require.NotNil(t, rec.User)
	require.Equal(t, "new@x.com", rec.User.Address)
}

func TestRegisterValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address","type":"value_error"}]}`))
	})
	_, err := c.Register(context.Background(), Registration{IdentityToken: "abc", Address: "x", Secret: "y"})
	require.EqualError(t, err, "Error 422 (Unprocessable Entity): value is not a valid email address")
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)
	_, err = New("/people")
	require.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	require.True(t, ValidAddress("user@example.com"))
	require.True(t, ValidAddress("a.b+c@sub.example.co"))
	require.False(t, ValidAddress("not-an-email"))
	require.False(t, ValidAddress("user@example"))
	require.False(t, ValidAddress("us er@example.com"))
	require.False(t, ValidAddress("user@@example.com"))
	require.False(t, ValidAddress(""))
}

func TestEnumerations(t *testing.T) {
	for _, a := range AccountTypes() {
		require.True(t, a.Valid())
	}
	for _, p := range Purposes() {
		require.True(t, p.Valid())
	}
	require.False(t, AccountType("enterprise").Valid())
	require.False(t, Purpose("spam").Valid())
}
