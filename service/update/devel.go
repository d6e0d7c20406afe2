package update

import (
	"context"

	"github.com/rs/zerolog"
)

// devel is the no-op update policy, for development purposes: it never
// updates or resets anything, and its freshness queries report a fixed
// sentinel instead of performing any shell or network I/O.
// Everything else around it should work fine, though.
type devel struct {
	log zerolog.Logger
}

// NewDevel creates an Updater that performs no device mutation at all.
func NewDevel(log zerolog.Logger) Updater {
	return &devel{
		log: log.With().Str("component", "devel-updater").Logger(),
	}
}

func (d *devel) LatestBuild(ctx context.Context) (string, error) {
	return NotSupported, nil
}

func (d *devel) CurrentFirmwareVersion(ctx context.Context) (string, error) {
	return NotSupported, nil
}

func (d *devel) HasNewestFirmware(ctx context.Context) (bool, error) {
	return true, nil
}

func (d *devel) IsUpdated(ctx context.Context) (bool, error) {
	return true, nil
}

func (d *devel) Update(ctx context.Context, link string) error {
	d.log.Debug().Msg("Skipping update")
	return nil
}

func (d *devel) ResetConfig(ctx context.Context) error {
	d.log.Debug().Msg("Skipping config reset")
	return nil
}
