package device

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	maskAny = errors.WithStack
)

// CantHandleError is returned when a command could not be executed by
// any of the connections of a device.
type CantHandleError struct {
	// Device is the display identifier of the device.
	Device string
	// Conns are the renderings of every connection attempted,
	// in priority order.
	Conns []string
	// Cmd is the command that could not be sent.
	Cmd string
	// Attempts aggregates the failure of every attempted connection.
	// Nil when the device has no connections at all.
	Attempts error
}

func (e *CantHandleError) Error() string {
	return fmt.Sprintf("dev:'%s',conns:'%v':could not send cmd '%s'", e.Device, e.Conns, e.Cmd)
}

// Unwrap yields the aggregated per-connection failures.
func (e *CantHandleError) Unwrap() error {
	return e.Attempts
}

// IsCantHandle returns true if the given error is (or is caused by)
// a CantHandleError.
func IsCantHandle(err error) bool {
	_, ok := errors.Cause(err).(*CantHandleError)
	return ok
}

// AsCantHandle returns the CantHandleError in the cause chain of the
// given error, if any.
func AsCantHandle(err error) (*CantHandleError, bool) {
	che, ok := errors.Cause(err).(*CantHandleError)
	return che, ok
}
