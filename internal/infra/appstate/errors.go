package appstate

import "errors"

// ErrInvalidStateTransition is returned when a lifecycle transition is not
// allowed from the current state.
var ErrInvalidStateTransition = errors.New("invalid state transition")
