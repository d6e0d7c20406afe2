package buildsource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/hydraip/DeviceKit/model"
)

const (
	defaultRequestTimeout = time.Second * 30
)

var (
	maskAny = errors.WithStack
)

type client struct {
	endpoint string
	c        *http.Client
}

// NewClient creates a build metadata client for the given endpoint.
// The endpoint is expected to serve a JSON document shaped as
// {"builds": [{"number": N}, ...]}.
func NewClient(endpoint string) (API, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, maskAny(err)
	}
	return &client{
		endpoint: endpoint,
		c: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}, nil
}

// LatestBuildNumber fetches the build list and returns the highest
// build number in it.
func (c *client) LatestBuildNumber(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, maskAny(err)
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return 0, maskAny(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("build source returned status %s", resp.Status)
	}
	var list model.BuildList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, maskAny(err)
	}
	latest, err := list.LatestNumber()
	if err != nil {
		return 0, maskAny(err)
	}
	return latest, nil
}
