// Package flow sequences the identity-verification wizard:
// login -> pending verification -> address selection or registration -> summary.
//
// The controller never blocks. Network work is returned as a Task for the
// caller to run off its event loop; results come back through Apply.
package flow

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/directory"
)

// Directory is the subset of the directory client the wizard needs.
type Directory interface {
	Lookup(ctx context.Context, token string) (directory.Person, error)
	Register(ctx context.Context, reg directory.Registration) (directory.Record, error)
}

// LookupErrorPolicy decides where a failed lookup leaves the user.
type LookupErrorPolicy int

const (
	// FallbackToRegistration shows the error and moves on to registration.
	FallbackToRegistration LookupErrorPolicy = iota
	// StayForRetry keeps the pending screen and lets the user retry the lookup.
	StayForRetry
)

// DefaultPacingDelay is the wait between login and lookup.
const DefaultPacingDelay = 2 * time.Second

// Options capture the differences between wizard variants.
type Options struct {
	PacingDelay       time.Duration
	AllowClose        bool
	LookupErrorPolicy LookupErrorPolicy
	Logger            zerolog.Logger
}

// Profile is what the summary screen shows.
type Profile struct {
	IdentityToken string
	Address       string
	AccountType   directory.AccountType
	Purpose       directory.Purpose
}

// RegistrationForm is the user's input on the registration screen.
type RegistrationForm struct {
	Address     string
	Secret      string
	AccountType directory.AccountType
	Purpose     directory.Purpose
}

// Controller owns the wizard's screen registry and session state.
// It is not safe for concurrent use; call it from one event loop.
type Controller struct {
	dir     Directory
	opts    Options
	log     zerolog.Logger
	base    context.Context
	screens *Registry
	session *Session
	pending bool
	profile *Profile
}

func NewController(ctx context.Context, dir Directory, opts Options) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PacingDelay < 0 {
		opts.PacingDelay = 0
	}
	return &Controller{
		dir:     dir,
		opts:    opts,
		log:     opts.Logger,
		base:    ctx,
		screens: NewRegistry(),
	}
}

func (c *Controller) Active() View { return c.screens.Active() }

// Error returns the inline error currently shown on v.
func (c *Controller) Error(v View) string { return c.screens.Error(v) }

// Pending reports whether a task is outstanding.
func (c *Controller) Pending() bool { return c.pending }

func (c *Controller) AllowClose() bool { return c.opts.AllowClose }

// CanRetry reports whether the pending screen is showing a failed lookup that may be retried.
func (c *Controller) CanRetry() bool {
	return c.opts.LookupErrorPolicy == StayForRetry &&
		c.screens.IsActive(ViewPendingVerification) &&
		!c.pending &&
		c.screens.Error(ViewPendingVerification) != ""
}

// IdentityToken returns the session token, or "" before login.
func (c *Controller) IdentityToken() string {
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// Addresses returns a copy of the last fetched address list, in server order.
func (c *Controller) Addresses() []string {
	if c.session == nil {
		return nil
	}
	return slices.Clone(c.session.Addresses)
}

// Profile returns the summary content once the flow has reached it.
func (c *Controller) Profile() (Profile, bool) {
	if c.profile == nil {
		return Profile{}, false
	}
	return *c.profile, true
}

// SubmitIdentity starts a session for token and returns the delayed lookup.
// Blank tokens are rejected with ErrEmptyInput before any network call.
func (c *Controller) SubmitIdentity(token string) (Task, error) {
	if !c.screens.IsActive(ViewLogin) {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.screens.SetError(ViewLogin, ErrEmptyInput.Error())
		return Task{}, ErrEmptyInput
	}
	c.screens.ClearError(ViewLogin)
	c.session.close()
	c.session = newSession(c.base, token)
	c.profile = nil
	c.activate(ViewPendingVerification)
	return c.lookupTask(c.opts.PacingDelay), nil
}

// RetryLookup re-issues a failed lookup without the pacing delay.
func (c *Controller) RetryLookup() (Task, error) {
	if !c.CanRetry() {
		if c.pending {
			return Task{}, ErrRequestPending
		}
		return Task{}, ErrWrongView
	}
	c.screens.ClearError(ViewPendingVerification)
	return c.lookupTask(0), nil
}

func (c *Controller) lookupTask(delay time.Duration) Task {
	s := c.session
	s.Addresses = nil
	c.pending = true
	dir, id, token := c.dir, s.ID, s.Token
	return Task{
		Session: id,
		Name:    "lookup",
		ctx:     s.ctx,
		run: func(ctx context.Context) Event {
			if err := sleep(ctx, delay); err != nil {
				return LookupDone{Session: id, Result: LookupResult{Err: err}}
			}
			p, err := dir.Lookup(ctx, token)
			return LookupDone{Session: id, Result: LookupResult{Person: p, Err: err}}
		},
	}
}

// Apply feeds a task result back into the controller. It reports false, and
// changes nothing, when the event belongs to a session that has since ended.
func (c *Controller) Apply(ev Event) bool {
	if c.session == nil || ev.SessionID() != c.session.ID {
		c.log.Debug().Str("session", ev.SessionID().String()).Msg("dropping stale result")
		return false
	}
	c.pending = false
	switch e := ev.(type) {
	case LookupDone:
		_ = c.OnLookupResult(e.Result)
	case RegistrationDone:
		c.onRegistration(e)
	default:
		return false
	}
	return true
}

// OnLookupResult moves off the pending screen according to the lookup outcome.
func (c *Controller) OnLookupResult(r LookupResult) error {
	if c.session == nil || !c.screens.IsActive(ViewPendingVerification) {
		return ErrWrongView
	}
	c.pending = false
	switch {
	case errors.Is(r.Err, directory.ErrNotFound):
		c.activate(ViewRegistration)
	case r.Err != nil:
		msg := r.Err.Error()
		c.log.Warn().Err(r.Err).Str("session", c.session.ID.String()).Msg("lookup failed")
		c.screens.SetError(ViewPendingVerification, msg)
		if c.opts.LookupErrorPolicy == FallbackToRegistration {
			c.screens.SetError(ViewRegistration, msg)
			c.activate(ViewRegistration)
		}
	case len(r.Person.Addresses) == 0:
		c.activate(ViewRegistration)
	default:
		c.session.Addresses = slices.Clone(r.Person.Addresses)
		c.activate(ViewAddressSelection)
	}
	return nil
}

// SelectAddress finishes the flow with an address from the fetched list.
func (c *Controller) SelectAddress(address string) error {
	if !c.screens.IsActive(ViewAddressSelection) {
		return ErrWrongView
	}
	address = strings.TrimSpace(address)
	if address == "" || !c.session.HasAddress(address) {
		c.screens.SetError(ViewAddressSelection, ErrNoSelection.Error())
		return ErrNoSelection
	}
	c.screens.ClearError(ViewAddressSelection)
	c.profile = &Profile{IdentityToken: c.session.Token, Address: address}
	c.activate(ViewSummary)
	return nil
}

// BeginRegistration follows the "register a new address" link from the selection screen.
func (c *Controller) BeginRegistration() error {
	if !c.screens.IsActive(ViewAddressSelection) {
		return ErrWrongView
	}
	c.screens.ClearError(ViewAddressSelection)
	c.activate(ViewRegistration)
	return nil
}

// SubmitRegistration validates the form and returns the registration task.
// Validation failures leave the view unchanged and make no network call.
func (c *Controller) SubmitRegistration(form RegistrationForm) (Task, error) {
	if !c.screens.IsActive(ViewRegistration) {
		return Task{}, ErrWrongView
	}
	if c.pending {
		return Task{}, ErrRequestPending
	}
	address := strings.TrimSpace(form.Address)
	secret := strings.TrimSpace(form.Secret)
	if address == "" || secret == "" {
		c.screens.SetError(ViewRegistration, ErrEmptyFields.Error())
		return Task{}, ErrEmptyFields
	}
	if !directory.ValidAddress(address) {
		c.screens.SetError(ViewRegistration, ErrInvalidEmail.Error())
		return Task{}, ErrInvalidEmail
	}
	c.screens.ClearError(ViewRegistration)

	reg := directory.Registration{
		IdentityToken: c.session.Token,
		Address:       address,
		Secret:        secret,
		AccountType:   form.AccountType,
		Purpose:       form.Purpose,
	}
	if reg.AccountType == "" {
		reg.AccountType = directory.AccountPersonal
	}
	if reg.Purpose == "" {
		reg.Purpose = directory.PurposeStandard
	}

	c.pending = true
	s := c.session
	dir, id := c.dir, s.ID
	return Task{
		Session: id,
		Name:    "register",
		ctx:     s.ctx,
		run: func(ctx context.Context) Event {
			rec, err := dir.Register(ctx, reg)
			return RegistrationDone{Session: id, Request: reg, Record: rec, Err: err}
		},
	}, nil
}

func (c *Controller) onRegistration(e RegistrationDone) {
	if !c.screens.IsActive(ViewRegistration) {
		return
	}
	if e.Err != nil {
		c.log.Warn().Err(e.Err).Str("session", e.Session.String()).Msg("registration failed")
		c.screens.SetError(ViewRegistration, e.Err.Error())
		return
	}
	c.profile = &Profile{
		IdentityToken: e.Request.IdentityToken,
		Address:       e.Request.Address,
		AccountType:   e.Request.AccountType,
		Purpose:       e.Request.Purpose,
	}
	c.activate(ViewSummary)
}

// Restart discards the session and returns to login. Outstanding tasks are
// cancelled and their results will be ignored.
func (c *Controller) Restart() {
	c.session.close()
	c.session = nil
	c.pending = false
	c.profile = nil
	prev := c.screens.Active()
	c.screens.Reset()
	c.log.Info().Str("from", prev.String()).Str("to", ViewLogin.String()).Msg("session reset")
}

// Close ends the wizard when the variant offers a close action.
func (c *Controller) Close() error {
	if !c.opts.AllowClose {
		return ErrCloseDisabled
	}
	c.Restart()
	return nil
}

func (c *Controller) activate(v View) {
	prev := c.screens.Activate(v)
	ev := c.log.Info().Str("from", prev.String()).Str("to", v.String())
	if c.session != nil {
		ev = ev.Str("session", c.session.ID.String())
	}
	ev.Msg("view transition")
}
