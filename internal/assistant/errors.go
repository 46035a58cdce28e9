package assistant

import (
	"errors"
	"fmt"
)

// ConnectivityError means the service could not be reached at all
// (DNS, refused connection, timeout).
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: service unreachable: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RemoteError means the service answered with a non-2xx status.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.Status, e.Body)
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// StatusOf returns the HTTP status of a RemoteError, or 0.
func StatusOf(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
