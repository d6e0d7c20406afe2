package device

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hydraip/DeviceKit/model"
	"github.com/hydraip/DeviceKit/service/conn"
)

func TestCmdFirstSuccessWins(t *testing.T) {
	ctx := context.Background()
	first := &conn.Stub{Name: "serial", Default: conn.StubResponse{Err: errors.New("no carrier")}}
	second := &conn.Stub{Name: "ssh", Default: conn.StubResponse{Output: "hello"}}
	third := &conn.Stub{Name: "spare", Default: conn.StubResponse{Output: "never"}}
	dev := New("box1", zerolog.Nop(), first, second, third)

	out, err := dev.Cmd(ctx, conn.Request{Cmd: "ls -al"})
	if err != nil {
		t.Fatalf("Cmd failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("Expected output 'hello', got '%s'", out)
	}
	if len(first.Calls) != 1 {
		t.Errorf("Expected 1 call on first connection, got %d", len(first.Calls))
	}
	if len(second.Calls) != 1 {
		t.Errorf("Expected 1 call on second connection, got %d", len(second.Calls))
	}
	if len(third.Calls) != 0 {
		t.Errorf("Expected no calls on third connection, got %d", len(third.Calls))
	}
}

func TestCmdAllConnectionsFail(t *testing.T) {
	ctx := context.Background()
	first := &conn.Stub{Name: "serial", Default: conn.StubResponse{Err: errors.New("no carrier")}}
	second := &conn.Stub{Name: "ssh", Default: conn.StubResponse{Err: errors.New("unreachable")}}
	dev := New("box2", zerolog.Nop(), first, second)

	_, err := dev.Cmd(ctx, conn.Request{Cmd: "reboot"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsCantHandle(err) {
		t.Fatalf("Expected CantHandleError, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"box2", "reboot", "stub:serial", "stub:ssh"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected error message to contain '%s', got '%s'", want, msg)
		}
	}
}

func TestCmdEmptyConnectionList(t *testing.T) {
	ctx := context.Background()
	dev := New("box3", zerolog.Nop())

	_, err := dev.Cmd(ctx, conn.Request{Cmd: "uname -a"})
	if !IsCantHandle(err) {
		t.Fatalf("Expected CantHandleError, got %v", err)
	}
}

func TestCmdEmptyCommand(t *testing.T) {
	ctx := context.Background()
	dev := New("box4", zerolog.Nop(), &conn.Stub{Name: "ssh"})

	_, err := dev.Cmd(ctx, conn.Request{})
	if !model.IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestDispatchReportsServingConnection(t *testing.T) {
	ctx := context.Background()
	first := &conn.Stub{Name: "serial", Default: conn.StubResponse{Err: errors.New("no carrier")}}
	second := &conn.Stub{Name: "ssh", Default: conn.StubResponse{Output: "ok", ExitStatus: 0}}
	dev := New("box5", zerolog.Nop(), first, second)

	resp, err := dev.Dispatch(ctx, conn.Request{Cmd: "true"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp.Conn != second {
		t.Errorf("Expected second connection to serve the command, got %v", resp.Conn)
	}
}

func TestDefaultName(t *testing.T) {
	dev := New("", zerolog.Nop())
	if dev.Name() != "Device" {
		t.Errorf("Expected default name 'Device', got '%s'", dev.Name())
	}
}

func TestStringRendering(t *testing.T) {
	dev := New("box6", zerolog.Nop(), &conn.Stub{Name: "ssh"})
	s := dev.String()
	if !strings.Contains(s, "box6") || !strings.Contains(s, "stub:ssh") {
		t.Errorf("Unexpected rendering '%s'", s)
	}
}
