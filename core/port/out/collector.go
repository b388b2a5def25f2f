package out

import (
	"context"

	"benchscope/core/domain"
)

// Collector fetches candidate benchmark/dataset announcements from one
// upstream source. Each adapter under adapter/out/collector implements this
// for exactly one domain.Source.
type Collector interface {
	Source() domain.Source
	Collect(ctx context.Context) ([]domain.RawCandidate, error)
}
