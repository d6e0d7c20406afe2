package device

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/hydraip/DeviceKit/model"
	"github.com/hydraip/DeviceKit/service/conn"
)

// Device is the API abstraction of a single target device, reachable
// over one or more connections. Connections are tried in fixed order;
// the order encodes an explicit preference (e.g. prefer the network
// shell, fall back to serial) and never changes for the lifetime of
// the device.
// A Device is used by one caller at a time; it is not safe for
// concurrent use.
type Device struct {
	name  string
	conns []conn.Conn
	log   zerolog.Logger
}

// Response ties the output of a dispatched command to the connection
// that served it.
type Response struct {
	Output string
	Conn   conn.Conn
}

// New creates a Device with given name and ordered connections.
// An empty name defaults to "Device". An empty connection list is
// allowed; every dispatch on such a device fails.
func New(name string, log zerolog.Logger, conns ...conn.Conn) *Device {
	if name == "" {
		name = "Device"
	}
	return &Device{
		name:  name,
		conns: conns,
		log:   log.With().Str("device", name).Logger(),
	}
}

// Name returns the display identifier of the device.
func (d *Device) Name() string {
	return d.name
}

// Conns returns the connections of the device in priority order.
func (d *Device) Conns() []conn.Conn {
	return d.conns
}

// Cmd sends a shell command to the device and returns the output of
// the first connection that could execute it.
func (d *Device) Cmd(ctx context.Context, req conn.Request) (string, error) {
	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return "", maskAny(err)
	}
	return resp.Output, nil
}

// Dispatch sends a shell command to the device, trying each connection
// in priority order. The first connection that executes the command
// wins; later connections are never tried after a success. Failed
// attempts are logged and collected. When every connection failed (or
// the device has none), Dispatch returns a CantHandleError carrying
// the device name, all attempted connections and the command.
func (d *Device) Dispatch(ctx context.Context, req conn.Request) (Response, error) {
	if req.Cmd == "" {
		return Response{}, errors.Wrap(model.ValidationError, "empty command")
	}
	commandsTotal.WithLabelValues(d.name).Inc()
	var attempts error
	for i, c := range d.conns {
		if i > 0 {
			fallbacksTotal.WithLabelValues(d.name).Inc()
		}
		out, err := c.Cmd(ctx, req)
		if err == nil {
			return Response{Output: out, Conn: c}, nil
		}
		d.log.Error().Err(err).
			Str("conn", c.String()).
			Str("cmd", req.Cmd).
			Msg("Connection failed to execute command")
		multierr.AppendInto(&attempts, err)
	}
	exhaustedTotal.WithLabelValues(d.name).Inc()
	return Response{}, maskAny(&CantHandleError{
		Device:   d.name,
		Conns:    d.connStrings(),
		Cmd:      req.Cmd,
		Attempts: attempts,
	})
}

func (d *Device) connStrings() []string {
	result := make([]string, 0, len(d.conns))
	for _, c := range d.conns {
		result = append(result, c.String())
	}
	return result
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(%v):name=%s", d.connStrings(), d.name)
}
