package flow

import "errors"

// Local validation failures. They block submission and are shown inline.
var (
	ErrEmptyInput   = errors.New("identity username cannot be empty")
	ErrEmptyFields  = errors.New("email and password cannot be empty")
	ErrInvalidEmail = errors.New("please enter a valid email")
	ErrNoSelection  = errors.New("please select an email, or register a new one")
)

var (
	// ErrRequestPending rejects a submission while an earlier one is in flight.
	ErrRequestPending = errors.New("a request is already in progress")
	// ErrWrongView rejects an action that the active screen does not offer.
	ErrWrongView = errors.New("action not available on this screen")
	// ErrCloseDisabled is returned by Close when the variant offers no close action.
	ErrCloseDisabled = errors.New("close is not offered")
)
