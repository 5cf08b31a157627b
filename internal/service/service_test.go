package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jask/rtic/internal/database"
	"github.com/jask/rtic/internal/database/repository"
	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/mailstore"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newAccounts(t *testing.T, db *sql.DB) *AccountService {
	return &AccountService{Users: repository.NewUserRepo(db), Cost: bcrypt.MinCost}
}

func reg(token, addr string) directory.Registration {
	return directory.Registration{
		IdentityToken: token,
		Address:       addr,
		Secret:        "pw",
		AccountType:   directory.AccountPersonal,
		Purpose:       directory.PurposeMarketing,
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc := newAccounts(t, openDB(t))

	u, err := svc.Register(ctx, reg("alice", "alice@example.com"))
	require.NoError(t, err)
	require.Equal(t, directory.User{Address: "alice@example.com", AccountType: "personal", Purpose: "marketing", IdentityToken: "alice"}, u)

	_, err = svc.Register(ctx, reg("alice", "alice@example.com"))
	require.ErrorIs(t, err, ErrUserExists)

	got, err := svc.Authenticate(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, u, got)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.Delete(ctx, "alice@example.com"))
	_, err = svc.Authenticate(ctx, "alice@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newAccounts(t, openDB(t))

	bad := directory.Registration{Address: "Alice <a@example.com>", AccountType: "team", Purpose: "spam"}
	_, err := svc.Register(context.Background(), bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]bool{}
	for _, is := range verr.Issues {
		require.Equal(t, "body", is.Loc[0])
		fields[is.Loc[1]] = true
	}
	require.Equal(t, map[string]bool{
		"email": true, "password": true, "mitid_username": true, "account_type": true, "email_purpose": true,
	}, fields)
}

func TestPersonListsAddressesInRegistrationOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newAccounts(t, openDB(t))

	_, err := svc.Person(ctx, "alice")
	require.ErrorIs(t, err, ErrPersonNotFound)

	for _, addr := range []string{"z@example.com", "a@example.com", "m@example.com"} {
		_, err := svc.Register(ctx, reg("alice", addr))
		require.NoError(t, err)
	}
	_, err = svc.Register(ctx, reg("bob", "bob@example.com"))
	require.NoError(t, err)

	p, err := svc.Person(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, directory.Person{IdentityToken: "alice", Addresses: []string{"z@example.com", "a@example.com", "m@example.com"}}, p)
}

func TestMailbox(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	accounts := newAccounts(t, db)
	box := &MailboxService{Emails: repository.NewEmailRepo(db)}

	alice, err := accounts.Register(ctx, reg("alice", "alice@example.com"))
	require.NoError(t, err)
	bob, err := accounts.Register(ctx, reg("bob", "bob@example.com"))
	require.NoError(t, err)
	carol, err := accounts.Register(ctx, reg("carol", "carol@example.com"))
	require.NoError(t, err)

	_, err = box.Send(ctx, alice, mailstore.Draft{Sender: "bob@example.com", Receiver: "alice@example.com", Text: "spoof"})
	require.ErrorIs(t, err, ErrForbiddenSender)

	_, err = box.Send(ctx, alice, mailstore.Draft{Sender: "alice@example.com", Receiver: "nope", Text: ""})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 2)

	msg, err := box.Send(ctx, alice, mailstore.Draft{Sender: "alice@example.com", Receiver: "bob@example.com", Text: "hi bob"})
	require.NoError(t, err)
	require.Equal(t, "marketing", msg.Tag)
	require.Equal(t, "alice", msg.IdentityToken)
	require.NotEmpty(t, msg.ID)

	for _, u := range []directory.User{alice, bob} {
		list, err := box.List(ctx, u)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "hi bob", list[0].Text)
	}
	list, err := box.List(ctx, carol)
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, box.Delete(ctx, carol, msg.ID), ErrForbiddenDelete)
	require.ErrorIs(t, box.Delete(ctx, bob, "missing"), ErrEmailNotFound)
	require.NoError(t, box.Delete(ctx, bob, msg.ID))
	list, err = box.List(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMaintenanceReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	require.NoError(t, database.SeedDemo(ctx, db))

	require.NoError(t, (&MaintenanceService{DB: db}).Reset(ctx))
	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n))
	require.Zero(t, n)

	require.Error(t, (&MaintenanceService{}).Reset(ctx))
}
