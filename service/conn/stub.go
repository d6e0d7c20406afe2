package conn

import (
	"context"
	"fmt"
)

// StubResponse is the scripted reaction of a stub connection to one
// command.
type StubResponse struct {
	Output     string
	Matched    string
	ExitStatus int
	Err        error
}

// Stub is a scripted in-memory connection. It is used by the harness
// in devel mode and by tests; real transports are provided by the
// embedding application.
type Stub struct {
	// Name of the connection, used in diagnostics.
	Name string
	// Responses maps a command to its scripted response. Commands
	// without an entry yield Default.
	Responses map[string]StubResponse
	// Default response for commands not found in Responses.
	Default StubResponse

	// Calls records every request in order of arrival.
	Calls []Request
	// Disconnects counts Disconnect calls.
	Disconnects int

	last Result
}

var _ Conn = &Stub{}

// Cmd returns the scripted response for the given command.
func (s *Stub) Cmd(ctx context.Context, req Request) (string, error) {
	s.Calls = append(s.Calls, req)
	resp, found := s.Responses[req.Cmd]
	if !found {
		resp = s.Default
	}
	if resp.Err != nil {
		return "", maskAny(resp.Err)
	}
	s.last = Result{
		Output:     resp.Output,
		Matched:    resp.Matched,
		ExitStatus: resp.ExitStatus,
	}
	return resp.Output, nil
}

// Disconnect records the session teardown.
func (s *Stub) Disconnect() error {
	s.Disconnects++
	return nil
}

// Last returns details of the most recent successful Cmd call.
func (s *Stub) Last() Result {
	return s.last
}

func (s *Stub) String() string {
	return fmt.Sprintf("stub:%s", s.Name)
}
