package update

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hydraip/DeviceKit/model"
	"github.com/hydraip/DeviceKit/service/buildsource"
	"github.com/hydraip/DeviceKit/service/device"
)

// Updater contains the firmware update API of a target device.
// Freshness queries are live round-trips; results are never cached,
// since a prior answer becomes stale the moment an update runs.
type Updater interface {
	// LatestBuild returns the identifier of the newest build available
	// from the build metadata source.
	LatestBuild(ctx context.Context) (string, error)
	// CurrentFirmwareVersion returns the version token of the firmware
	// installed on the device.
	CurrentFirmwareVersion(ctx context.Context) (string, error)
	// HasNewestFirmware returns true when the latest build identifier
	// is contained in the current firmware version string.
	HasNewestFirmware(ctx context.Context) (bool, error)
	// IsUpdated returns true when the device needs no update.
	IsUpdated(ctx context.Context) (bool, error)
	// Update brings the device to the latest available build. The given
	// link overrides the configured update artifact location when
	// non-empty. Update is a no-op when the device is already updated.
	Update(ctx context.Context, link string) error
	// ResetConfig wipes the persisted configuration of the device and
	// halts it. Best effort; failures are logged, never returned.
	ResetConfig(ctx context.Context) error
}

const (
	// DefaultUpdateLink is the standard location of the update artifact.
	DefaultUpdateLink = "http://hydraip-integration.internal.dresearch-fe.de:8080/view/HIPOS/job/HydraIP_UpdateV3_USB_Stick/lastSuccessfulBuild/artifact/rel-hudson/hyp-updateV3-hikirk.zip"
	// DefaultMetadataURL is the standard location of the build metadata.
	DefaultMetadataURL = "http://hydraip-integration.internal.dresearch-fe.de:8080/view/HIPOS/job/daisy-hipos-dfe-closed-hikirk/api/json"

	// NotSupported is reported by freshness queries of the devel
	// variant instead of performing any I/O.
	NotSupported = "not supported"
)

// Config for the update workflow of a device.
type Config struct {
	// UpdateLink is the location of the update artifact.
	// Empty means DefaultUpdateLink.
	UpdateLink string
	// MetadataURL is the location of the build metadata.
	// Empty means DefaultMetadataURL.
	MetadataURL string
	// UpdateTimeout covers the combined prepare/download/apply command,
	// including the reboot it causes.
	UpdateTimeout time.Duration
	// ResetTimeout covers the config reset command.
	ResetTimeout time.Duration
	// LoginTimeout for re-authentication during the config reset.
	LoginTimeout time.Duration
	// UpdateRecoverTimeout bounds the wait for the device to respond
	// again after an update reboot.
	UpdateRecoverTimeout time.Duration
	// ResetRecoverTimeout bounds the wait after a config reset.
	ResetRecoverTimeout time.Duration
	// ProbeInterval is the pause between recovery probes.
	ProbeInterval time.Duration
	// ProbeTimeout is the per-probe command timeout.
	ProbeTimeout time.Duration
}

// Dependencies of the update workflow.
type Dependencies struct {
	Log    zerolog.Logger
	Device *device.Device
	// Builds is the build metadata source. Nil means an HTTP client
	// for the configured MetadataURL.
	Builds buildsource.API
}

const (
	defaultUpdateTimeout        = time.Minute * 10
	defaultResetTimeout         = time.Second * 150
	defaultLoginTimeout         = time.Second * 20
	defaultUpdateRecoverTimeout = time.Second * 240
	defaultResetRecoverTimeout  = time.Second * 120
	defaultProbeInterval        = time.Second * 10
	defaultProbeTimeout         = time.Second * 15
)

// NewHydra creates the production Updater for a HydraIP device.
func NewHydra(conf Config, deps Dependencies) (Updater, error) {
	if deps.Device == nil {
		return nil, errors.Wrap(model.ValidationError, "Device is nil")
	}
	if conf.UpdateLink == "" {
		conf.UpdateLink = DefaultUpdateLink
	}
	if conf.MetadataURL == "" {
		conf.MetadataURL = DefaultMetadataURL
	}
	if conf.UpdateTimeout == 0 {
		conf.UpdateTimeout = defaultUpdateTimeout
	}
	if conf.ResetTimeout == 0 {
		conf.ResetTimeout = defaultResetTimeout
	}
	if conf.LoginTimeout == 0 {
		conf.LoginTimeout = defaultLoginTimeout
	}
	if conf.UpdateRecoverTimeout == 0 {
		conf.UpdateRecoverTimeout = defaultUpdateRecoverTimeout
	}
	if conf.ResetRecoverTimeout == 0 {
		conf.ResetRecoverTimeout = defaultResetRecoverTimeout
	}
	if conf.ProbeInterval == 0 {
		conf.ProbeInterval = defaultProbeInterval
	}
	if conf.ProbeTimeout == 0 {
		conf.ProbeTimeout = defaultProbeTimeout
	}
	if deps.Builds == nil {
		builds, err := buildsource.NewClient(conf.MetadataURL)
		if err != nil {
			return nil, maskAny(err)
		}
		deps.Builds = builds
	}
	deps.Log = deps.Log.With().Str("component", "updater").Str("device", deps.Device.Name()).Logger()
	return &hydra{
		Config:       conf,
		Dependencies: deps,
	}, nil
}
