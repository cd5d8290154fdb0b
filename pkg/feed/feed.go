package feed

import (
	"context"
	"errors"
	"fmt"

	"carris2pg/pkg/types"
)

// ErrUnavailable marks a feed fetch that produced no usable payload: a
// network error, a non-2xx status, or a body that failed to decode. An
// upstream snapshot with zero vehicles is NOT unavailable; adapters return
// an empty slice and a nil error for that case.
var ErrUnavailable = errors.New("feed unavailable")

// Adapter fetches one point-in-time snapshot of raw vehicle records from an
// upstream feed.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]types.RawRecord, error)
}

func unavailable(feed string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, feed, err)
}
