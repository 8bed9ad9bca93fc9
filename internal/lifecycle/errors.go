package lifecycle

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by accessors that need a specific state,
// such as reading booking info before voting has closed.
var ErrInvalidTransition = errors.New("action not valid in current state")

// ErrorKind classifies action failures for the view layer.
type ErrorKind string

const (
	KindLoadFailed         ErrorKind = "LoadFailed"
	KindRemoteActionFailed ErrorKind = "RemoteActionFailed"
	KindChatLoadFailed     ErrorKind = "ChatLoadFailed"
	KindChatSendFailed     ErrorKind = "ChatSendFailed"
)

// ActionError wraps a gateway failure with its kind. The controller never
// changes state when returning one.
type ActionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or "" for other errors.
func KindOf(err error) ErrorKind {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Kind
	}
	return ""
}
