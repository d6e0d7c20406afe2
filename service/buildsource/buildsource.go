package buildsource

import (
	"context"
)

// API of the build metadata source. It yields the identifier of the
// newest build that is available for a device family.
type API interface {
	// LatestBuildNumber returns the highest build number known to the
	// source.
	LatestBuildNumber(ctx context.Context) (int, error)
}
