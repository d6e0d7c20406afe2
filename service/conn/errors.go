package conn

import "github.com/pkg/errors"

var (
	// DisconnectedError is returned when the session was severed by the
	// remote side, e.g. a reboot closing the shell.
	DisconnectedError = errors.New("connection closed")
	IsDisconnected    = isErrorFunc(DisconnectedError)
	// TimeoutError is returned when the expected match did not appear
	// within the request timeout.
	TimeoutError = errors.New("timeout waiting for match")
	IsTimeout    = isErrorFunc(TimeoutError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
