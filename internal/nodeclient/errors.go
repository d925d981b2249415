package nodeclient

import (
	"errors"
	"fmt"
)

// UnreachableError reports a transport-level failure (connection refused,
// timeout) talking to a node agent. Fan-out callers treat it as non-fatal.
type UnreachableError struct {
	Node string
	Err  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("node %s unreachable: %v", e.Node, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// UpstreamError reports that the node agent responded with an application
// error; Body carries the response body as diagnostic text.
type UpstreamError struct {
	Node   string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("node %s returned %d: %s", e.Node, e.Status, e.Body)
}

// IsUnreachable reports whether err is a transport failure to a node agent.
func IsUnreachable(err error) bool {
	var ue *UnreachableError

	return errors.As(err, &ue)
}

// IsUpstream reports whether err is an application-level node agent error,
// returning it for access to status and body.
func IsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}

	return nil, false
}
