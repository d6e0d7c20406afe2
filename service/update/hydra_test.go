package update

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hydraip/DeviceKit/service/buildsource"
	"github.com/hydraip/DeviceKit/service/conn"
	"github.com/hydraip/DeviceKit/service/device"
)

// fakeBuilds is an in-memory build metadata source.
type fakeBuilds struct {
	number int
	err    error
	calls  int
}

func (f *fakeBuilds) LatestBuildNumber(ctx context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.number, nil
}

// scriptConn is a connection with sequenced firmware version replies,
// so tests can observe the device version changing across an update.
type scriptConn struct {
	name        string
	fwVersions  []string
	updateErr   error
	updateExit  int
	resetErr    error
	cmds        []conn.Request
	disconnects int
	last        conn.Result
}

func (c *scriptConn) Cmd(ctx context.Context, req conn.Request) (string, error) {
	c.cmds = append(c.cmds, req)
	switch {
	case req.Cmd == fwVersionCmd:
		out := c.fwVersions[0]
		if len(c.fwVersions) > 1 {
			c.fwVersions = c.fwVersions[1:]
		}
		c.last = conn.Result{Output: out}
		return out, nil
	case strings.HasPrefix(req.Cmd, "do-update -c"):
		if c.updateErr != nil {
			return "", c.updateErr
		}
		c.last = conn.Result{Output: "update log", ExitStatus: c.updateExit, Matched: "login: "}
		return "update log", nil
	case req.Cmd == resetCmd:
		if c.resetErr != nil {
			return "", c.resetErr
		}
		c.last = conn.Result{Matched: "login:"}
		return "", nil
	default:
		c.last = conn.Result{}
		return "", nil
	}
}

func (c *scriptConn) Disconnect() error {
	c.disconnects++
	return nil
}

func (c *scriptConn) Last() conn.Result {
	return c.last
}

func (c *scriptConn) String() string {
	return "script:" + c.name
}

func newTestHydra(t *testing.T, builds buildsource.API, conns ...conn.Conn) Updater {
	t.Helper()
	dev := device.New("testbox", zerolog.Nop(), conns...)
	h, err := NewHydra(Config{
		UpdateTimeout:        time.Second,
		ResetTimeout:         time.Second,
		LoginTimeout:         time.Second,
		UpdateRecoverTimeout: time.Millisecond * 20,
		ResetRecoverTimeout:  time.Millisecond * 20,
		ProbeInterval:        time.Millisecond,
		ProbeTimeout:         time.Millisecond * 10,
	}, Dependencies{
		Log:    zerolog.Nop(),
		Device: dev,
		Builds: builds,
	})
	if err != nil {
		t.Fatalf("NewHydra failed: %v", err)
	}
	return h
}

func countUpdateCommands(cmds []conn.Request) int {
	result := 0
	for _, req := range cmds {
		if strings.Contains(req.Cmd, "get-update") {
			result++
		}
	}
	return result
}

func TestHasNewestFirmware(t *testing.T) {
	tests := []struct {
		build    int
		firmware string
		expected bool
	}{
		{42, "rel-42-signed", true},
		// Substring match, intentionally loose
		{42, "rel-420-signed", true},
		{42, "rel-4-signed", false},
		{7, "7", true},
	}
	ctx := context.Background()
	for _, test := range tests {
		c := &scriptConn{name: "ssh", fwVersions: []string{test.firmware}}
		h := newTestHydra(t, &fakeBuilds{number: test.build}, c)
		result, err := h.HasNewestFirmware(ctx)
		if err != nil {
			t.Fatalf("HasNewestFirmware(%d, %s) failed: %v", test.build, test.firmware, err)
		}
		if result != test.expected {
			t.Errorf("HasNewestFirmware(%d, %s): expected %v, got %v", test.build, test.firmware, test.expected, result)
		}
	}
}

func TestUpdateAlreadyUpdated(t *testing.T) {
	ctx := context.Background()
	c := &scriptConn{name: "ssh", fwVersions: []string{"rel-42-signed"}}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	if err := h.Update(ctx, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := countUpdateCommands(c.cmds); got != 0 {
		t.Errorf("Expected no update commands, got %d", got)
	}
	if c.disconnects != 0 {
		t.Errorf("Expected no disconnects, got %d", c.disconnects)
	}
}

func TestUpdateSuccess(t *testing.T) {
	ctx := context.Background()
	primary := &scriptConn{name: "ssh", fwVersions: []string{"rel-4-signed", "rel-42-signed"}}
	spare := &scriptConn{name: "serial", fwVersions: []string{"rel-4-signed", "rel-42-signed"}}
	h := newTestHydra(t, &fakeBuilds{number: 42}, primary, spare)

	if err := h.Update(ctx, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := countUpdateCommands(primary.cmds); got != 1 {
		t.Errorf("Expected 1 update command, got %d", got)
	}
	if primary.disconnects == 0 {
		t.Error("Expected primary connection to be disconnected")
	}
	if spare.disconnects == 0 {
		t.Error("Expected spare connection to be disconnected")
	}
}

func TestUpdateNonZeroExitStatus(t *testing.T) {
	ctx := context.Background()
	// Freshness reads true after the update, yet the bad exit status
	// alone must force a failure.
	c := &scriptConn{name: "ssh", fwVersions: []string{"rel-4-signed", "rel-42-signed"}, updateExit: 1}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	err := h.Update(ctx, "")
	if !IsFailed(err) {
		t.Fatalf("Expected FailedError, got %v", err)
	}
	if !strings.Contains(err.Error(), "status:1") {
		t.Errorf("Expected exit status in error, got '%s'", err.Error())
	}
}

func TestUpdateVerificationFails(t *testing.T) {
	ctx := context.Background()
	c := &scriptConn{name: "ssh", fwVersions: []string{"rel-4-signed"}}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	err := h.Update(ctx, "")
	if !IsFailed(err) {
		t.Fatalf("Expected FailedError, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "build:42") || !strings.Contains(msg, "fw:rel-4-signed") {
		t.Errorf("Expected diagnostics in error, got '%s'", msg)
	}
}

func TestUpdateToleratesRebootDrop(t *testing.T) {
	ctx := context.Background()
	// The reboot severs the session before the command completes.
	c := &scriptConn{name: "ssh", fwVersions: []string{"rel-4-signed", "rel-42-signed"}, updateErr: conn.DisconnectedError}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	if err := h.Update(ctx, ""); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if c.disconnects == 0 {
		t.Error("Expected connection to be disconnected")
	}
}

func TestResetConfigNeverFails(t *testing.T) {
	ctx := context.Background()
	c := &conn.Stub{Name: "ssh", Default: conn.StubResponse{Err: conn.TimeoutError}}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	if err := h.ResetConfig(ctx); err != nil {
		t.Fatalf("Expected nil from ResetConfig, got %v", err)
	}
	if c.Disconnects == 0 {
		t.Error("Expected connection to be disconnected")
	}
}

func TestResetConfigSuccess(t *testing.T) {
	ctx := context.Background()
	c := &scriptConn{name: "ssh", fwVersions: []string{"rel-42-signed"}}
	h := newTestHydra(t, &fakeBuilds{number: 42}, c)

	if err := h.ResetConfig(ctx); err != nil {
		t.Fatalf("ResetConfig failed: %v", err)
	}
	found := false
	for _, req := range c.cmds {
		if req.Cmd == resetCmd {
			found = true
		}
	}
	if !found {
		t.Error("Expected reset command to be dispatched")
	}
}
