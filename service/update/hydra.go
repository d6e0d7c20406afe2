package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"go.uber.org/multierr"

	"github.com/hydraip/DeviceKit/service/conn"
	"github.com/hydraip/DeviceKit/service/device"
)

const (
	fwVersionCmd = "do-update --current-update-version | awk '{print $2}'"
	updateCmdFmt = "do-update -c && get-update %s && do-update"
	resetCmd     = "rm -rf /var/lib/connman/* && hip-activate-config --reset && sync && halt -p"
	probeCmd     = "true"

	// The update and reset commands reboot or halt the device, so the
	// session typically ends with a login banner or a closed
	// connection instead of a prompt.
	updateExpect = `([lL]ogin: )|([cC]onnection\sto\s[^\s]*\sclosed\.)`
	resetExpect  = `([lL]ogin:)|([cC]onnection\sto\s[^\s]*\sclosed\.)|(Timeout.*\.)|(INFO - LAN)`

	fwVersionTimeout  = time.Second * 30
	outputTruncateLen = 100
)

// hydra implements the standard update policy for HydraIP devices.
type hydra struct {
	Config
	Dependencies
}

// LatestBuild returns the highest build number known to the build
// metadata source, rendered as string.
func (h *hydra) LatestBuild(ctx context.Context) (string, error) {
	nr, err := h.Builds.LatestBuildNumber(ctx)
	if err != nil {
		return "", maskAny(err)
	}
	return strconv.Itoa(nr), nil
}

// CurrentFirmwareVersion queries the device shell for the installed
// firmware version token.
func (h *hydra) CurrentFirmwareVersion(ctx context.Context) (string, error) {
	out, err := h.Device.Cmd(ctx, conn.Request{
		Cmd:     fwVersionCmd,
		Timeout: fwVersionTimeout,
	})
	if err != nil {
		return "", maskAny(err)
	}
	return strings.TrimSpace(out), nil
}

// HasNewestFirmware returns true when the latest build identifier is
// contained in the current firmware version string. The containment
// check is deliberately loose: the on-device version string embeds the
// build number inside a longer decorated string. Note that this can
// produce false positives on numeric prefix collisions ("4" in "42").
func (h *hydra) HasNewestFirmware(ctx context.Context) (bool, error) {
	latest, err := h.LatestBuild(ctx)
	if err != nil {
		return false, maskAny(err)
	}
	current, err := h.CurrentFirmwareVersion(ctx)
	if err != nil {
		return false, maskAny(err)
	}
	return strings.Contains(current, latest), nil
}

// IsUpdated returns true when the device needs no update.
func (h *hydra) IsUpdated(ctx context.Context) (bool, error) {
	result, err := h.HasNewestFirmware(ctx)
	if err != nil {
		return false, maskAny(err)
	}
	return result, nil
}

// Update brings the device to the latest available build.
// Preparing, downloading and applying the update run as one combined
// command, because applying reboots the device and severs the session
// before a separate apply call could be issued.
func (h *hydra) Update(ctx context.Context, link string) error {
	if link == "" {
		link = h.UpdateLink
	}
	log := h.Log.With().Str("link", link).Logger()
	log.Info().Msg("Attempting update")

	updated, err := h.IsUpdated(ctx)
	if err != nil {
		return maskAny(err)
	}
	if updated {
		log.Info().Msg("Already updated")
		return nil
	}

	updatesTotal.Inc()
	start := time.Now()
	machine := newPhases(log)
	machine.begin(ctx)

	var out string
	var exitStatus int
	resp, err := h.Device.Dispatch(ctx, conn.Request{
		Cmd:     fmt.Sprintf(updateCmdFmt, link),
		Expect:  updateExpect,
		Timeout: h.UpdateTimeout,
	})
	if err != nil {
		if !droppedByReboot(err) {
			machine.fail(ctx)
			updateFailuresTotal.Inc()
			return maskAny(err)
		}
		// The reboot closing the session is a normal outcome here.
		log.Debug().Msg("Connection dropped by update reboot")
	} else {
		out = resp.Output
		exitStatus = resp.Conn.Last().ExitStatus
	}

	// Stale sessions must not be reused after the reboot.
	if err := h.disconnectAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to disconnect connections")
	}

	log.Debug().Msg("Waiting for device to recover from update")
	h.awaitRecovery(ctx, h.UpdateRecoverTimeout)

	if exitStatus != 0 {
		machine.fail(ctx)
		updateFailuresTotal.Inc()
		return maskAny(&FailedError{
			ExitStatus: exitStatus,
			Output:     truncate(out, outputTruncateLen),
		})
	}
	updated, err = h.IsUpdated(ctx)
	if err != nil {
		machine.fail(ctx)
		updateFailuresTotal.Inc()
		return maskAny(err)
	}
	if !updated {
		// Fetch diagnostics best effort; the update already failed.
		latest, _ := h.LatestBuild(ctx)
		current, _ := h.CurrentFirmwareVersion(ctx)
		machine.fail(ctx)
		updateFailuresTotal.Inc()
		return maskAny(&FailedError{
			ExitStatus: exitStatus,
			Build:      latest,
			Firmware:   current,
			Output:     truncate(out, outputTruncateLen),
		})
	}

	machine.succeed(ctx)
	lastUpdateDuration.Set(time.Since(start).Seconds())
	log.Info().Msg("Update succeeded")
	return nil
}

// ResetConfig wipes the persisted network/config state and halts the
// device. This is best effort cleanup: the command either fails
// gracefully (already reset) or succeeds and severs the connection, so
// dispatch failures are logged but never returned.
func (h *hydra) ResetConfig(ctx context.Context) error {
	h.Log.Info().Msg("Resetting device configuration")
	resetsTotal.Inc()
	if _, err := h.Device.Dispatch(ctx, conn.Request{
		Cmd:          resetCmd,
		Expect:       resetExpect,
		Timeout:      h.ResetTimeout,
		LoginTimeout: h.LoginTimeout,
	}); err != nil {
		h.Log.Warn().Err(err).Msg("Config reset command failed")
	}
	if err := h.disconnectAll(); err != nil {
		h.Log.Warn().Err(err).Msg("Failed to disconnect connections")
	}
	h.Log.Debug().Msg("Waiting for device to recover from config reset")
	h.awaitRecovery(ctx, h.ResetRecoverTimeout)
	return nil
}

// disconnectAll tears down the session of every connection, so the
// next interaction re-establishes cleanly.
func (h *hydra) disconnectAll() error {
	var ae aerr.AggregateError
	for _, c := range h.Device.Conns() {
		if err := c.Disconnect(); err != nil {
			ae.Add(maskAny(err))
		}
	}
	return ae.AsError()
}

// awaitRecovery polls the device with a trivial command until it
// responds again or the recovery budget is spent. A device that does
// not respond in time is left to the subsequent verification.
func (h *hydra) awaitRecovery(ctx context.Context, budget time.Duration) {
	deadline := time.Now().Add(budget)
	for {
		if _, err := h.Device.Cmd(ctx, conn.Request{Cmd: probeCmd, Timeout: h.ProbeTimeout}); err == nil {
			h.Log.Debug().Msg("Device recovered")
			return
		}
		if time.Now().After(deadline) {
			h.Log.Warn().Msg("Device did not recover within budget")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(h.ProbeInterval):
			// Probe again
		}
	}
}

// droppedByReboot returns true when the given dispatch error was
// caused (on any connection) by the session being severed.
func droppedByReboot(err error) bool {
	if conn.IsDisconnected(err) {
		return true
	}
	che, ok := device.AsCantHandle(err)
	if !ok || che.Attempts == nil {
		return false
	}
	for _, attempt := range multierr.Errors(che.Attempts) {
		if conn.IsDisconnected(attempt) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
