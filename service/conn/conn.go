package conn

import (
	"context"
	"fmt"
	"time"
)

// Conn abstracts a single communication channel to a target device,
// such as a serial terminal or a network shell.
// Implementations are not safe for concurrent use; each connection is
// owned exclusively by one device.
type Conn interface {
	fmt.Stringer
	// Cmd sends a shell command to the device and returns its captured
	// output. When req.Expect is set, the call returns as soon as that
	// pattern is matched instead of waiting for the normal prompt.
	Cmd(ctx context.Context, req Request) (string, error)
	// Disconnect tears down the current session (if any), so the next
	// Cmd re-establishes it instead of reusing a dead handle.
	// Disconnect is idempotent.
	Disconnect() error
	// Last returns details of the most recent Cmd call on this
	// connection.
	Last() Result
}

// Request holds the parameters of a single shell command.
type Request struct {
	// Cmd is the shell command to send. Must not be empty.
	Cmd string
	// Expect optionally overrides the "ready for next command" match
	// with a regular expression, for commands that cause a
	// non-standard response such as a reboot banner.
	Expect string
	// Timeout to wait for a match before the request fails.
	Timeout time.Duration
	// LoginTimeout to re-authenticate when the transport needs to
	// re-establish its session. Zero means the transport default.
	LoginTimeout time.Duration
}

// Result describes the outcome of the last command on a connection.
type Result struct {
	// Output is the captured output of the command.
	Output string
	// Matched is the trailing text that satisfied the match.
	Matched string
	// ExitStatus is the numeric exit status reported by the shell.
	ExitStatus int
}
