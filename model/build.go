package model

import (
	"github.com/pkg/errors"
)

// BuildRecord describes a single build known to the build metadata
// source, keyed by an ascending numeric identifier.
type BuildRecord struct {
	Number int `json:"number"`
}

// BuildList is the document returned by the build metadata source.
type BuildList struct {
	Builds []BuildRecord `json:"builds"`
}

// LatestNumber returns the highest build number in the list.
// Higher numbers denote more recent builds.
func (l BuildList) LatestNumber() (int, error) {
	if len(l.Builds) == 0 {
		return 0, errors.Wrap(ValidationError, "no builds in list")
	}
	latest := l.Builds[0].Number
	for _, b := range l.Builds[1:] {
		if b.Number > latest {
			latest = b.Number
		}
	}
	return latest, nil
}
