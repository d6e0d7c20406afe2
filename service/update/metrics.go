package update

import (
	"github.com/hydraip/DeviceKit/pkg/metrics"
)

const (
	subSystem = "update"
)

var (
	// Number of attempted updates
	updatesTotal = metrics.MustRegisterCounter(subSystem,
		"updates_total",
		"Number of attempted updates")

	// Number of failed updates
	updateFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"update_failures_total",
		"Number of failed updates")

	// Number of config resets
	resetsTotal = metrics.MustRegisterCounter(subSystem,
		"config_resets_total",
		"Number of config resets")

	// Duration of the last successful update
	lastUpdateDuration = metrics.MustRegisterGauge(subSystem,
		"last_update_duration_seconds",
		"Duration of the last successful update in seconds")
)
