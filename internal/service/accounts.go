package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/jask/rtic/internal/database"
	"github.com/jask/rtic/internal/database/repository"
	"github.com/jask/rtic/internal/directory"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPersonNotFound     = errors.New("person not found")
)

// Issue is one rejected request field.
type Issue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError lists every field problem found in a request body.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = strings.Join(is.Loc, ".") + ": " + is.Msg
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, msg, typ string) {
	e.Issues = append(e.Issues, Issue{Loc: []string{"body", field}, Msg: msg, Type: typ})
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// AccountService registers and authenticates directory users.
type AccountService struct {
	Users *repository.UserRepo
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

// Register validates reg and stores it with a hashed password.
func (s *AccountService) Register(ctx context.Context, reg directory.Registration) (directory.User, error) {
	if err := validateRegistration(reg); err != nil {
		return directory.User{}, err
	}
	existing, err := s.Users.Get(ctx, reg.Address)
	if err != nil {
		return directory.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return directory.User{}, ErrUserExists
	}

	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Secret), cost)
	if err != nil {
		return directory.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := repository.User{
		Email:         reg.Address,
		PasswordHash:  string(hash),
		AccountType:   string(reg.AccountType),
		Purpose:       string(reg.Purpose),
		IdentityToken: reg.IdentityToken,
		CreatedAt:     database.Now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if isConstraint(err) {
			return directory.User{}, ErrUserExists
		}
		return directory.User{}, fmt.Errorf("create user: %w", err)
	}
	return toDirectoryUser(u), nil
}

// Authenticate checks an address and password. Unknown addresses and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (directory.User, error) {
	u, err := s.Users.Get(ctx, email)
	if err != nil {
		return directory.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return directory.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return directory.User{}, ErrInvalidCredentials
	}
	return toDirectoryUser(*u), nil
}

// Person lists the addresses registered to an identity token, oldest first.
func (s *AccountService) Person(ctx context.Context, token string) (directory.Person, error) {
	users, err := s.Users.ListByIdentity(ctx, token)
	if err != nil {
		return directory.Person{}, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return directory.Person{}, ErrPersonNotFound
	}
	p := directory.Person{IdentityToken: token, Addresses: make([]string, len(users))}
	for i, u := range users {
		p.Addresses[i] = u.Email
	}
	return p, nil
}

func (s *AccountService) Delete(ctx context.Context, email string) error {
	if _, err := s.Users.Delete(ctx, email); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func validateRegistration(reg directory.Registration) error {
	verr := &ValidationError{}
	if !validEmail(reg.Address) {
		verr.add("email", "value is not a valid email address", "value_error")
	}
	if reg.Secret == "" {
		verr.add("password", "field required", "missing")
	}
	if strings.TrimSpace(reg.IdentityToken) == "" {
		verr.add("mitid_username", "field required", "missing")
	}
	if !reg.AccountType.Valid() {
		verr.add("account_type", "Input should be 'personal' or 'company'", "enum")
	}
	if !reg.Purpose.Valid() {
		verr.add("email_purpose", "Input should be 'standard', 'marketing', 'notifications' or 'newsletter'", "enum")
	}
	return verr.orNil()
}

// validEmail accepts a bare addr-spec only, no display name or angle brackets.
func validEmail(s string) bool {
	if s == "" || !directory.ValidAddress(s) {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func toDirectoryUser(u repository.User) directory.User {
	return directory.User{
		Address:       u.Email,
		AccountType:   directory.AccountType(u.AccountType),
		Purpose:       directory.Purpose(u.Purpose),
		IdentityToken: u.IdentityToken,
	}
}

// isConstraint reports a primary-key or unique violation, which a concurrent
// registration of the same address produces.
func isConstraint(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}
