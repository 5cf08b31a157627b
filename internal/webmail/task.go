package webmail

import (
	"context"

	"github.com/google/uuid"

	"github.com/jask/rtic/internal/mailstore"
)

// Task is a store call returned by the controller. Run it off the event loop
// and pass the Event to Apply.
type Task struct {
	Session uuid.UUID
	Name    string

	ctx context.Context
	run func(ctx context.Context) Event
}

func (t Task) Run() Event {
	return t.run(t.ctx)
}

type Event interface {
	SessionID() uuid.UUID
}

// LoginDone is the result of Login. Err is the credential check; ListErr the
// inbox load that follows it.
type LoginDone struct {
	Session  uuid.UUID
	Account  mailstore.Account
	Messages []mailstore.Message
	Err      error
	ListErr  error
}

func (e LoginDone) SessionID() uuid.UUID { return e.Session }

type InboxLoaded struct {
	Session  uuid.UUID
	Messages []mailstore.Message
	Err      error
}

func (e InboxLoaded) SessionID() uuid.UUID { return e.Session }

type SendDone struct {
	Session  uuid.UUID
	Messages []mailstore.Message
	Err      error
	ListErr  error
}

func (e SendDone) SessionID() uuid.UUID { return e.Session }

type DeleteDone struct {
	Session  uuid.UUID
	ID       string
	Messages []mailstore.Message
	Err      error
	ListErr  error
}

func (e DeleteDone) SessionID() uuid.UUID { return e.Session }
