package update

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	maskAny = errors.WithStack
)

// FailedError is returned when an update did not get finished or was
// rolled back.
type FailedError struct {
	// ExitStatus of the combined update command.
	ExitStatus int
	// Build is the latest available build identifier.
	Build string
	// Firmware is the version reported by the device after the update.
	Firmware string
	// Output is the (truncated) output of the update command.
	Output string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("update failed: status:%d;build:%s;fw:%s;out:%s",
		e.ExitStatus, e.Build, e.Firmware, e.Output)
}

// IsFailed returns true if the given error is (or is caused by) a
// FailedError.
func IsFailed(err error) bool {
	_, ok := errors.Cause(err).(*FailedError)
	return ok
}
