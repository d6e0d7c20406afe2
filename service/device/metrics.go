package device

import (
	"github.com/hydraip/DeviceKit/pkg/metrics"
)

const (
	subSystem = "device"
)

var (
	// Number of dispatched shell commands
	commandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Number of dispatched shell commands",
		"device")

	// Number of fallbacks to a lower priority connection
	fallbacksTotal = metrics.MustRegisterCounterVec(subSystem,
		"connection_fallbacks_total",
		"Number of fallbacks to a lower priority connection",
		"device")

	// Number of dispatches that exhausted all connections
	exhaustedTotal = metrics.MustRegisterCounterVec(subSystem,
		"dispatch_exhausted_total",
		"Number of commands no connection could execute",
		"device")
)
