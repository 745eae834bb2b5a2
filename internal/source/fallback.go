package source

import (
	"context"

	"github.com/user/image-pipeline/internal/domain"
)

// Search runs one source definition against one entity. An empty slice with a
// nil error is a valid "no results" outcome.
type Search func(ctx context.Context, e domain.Entity, def Definition) ([]domain.Candidate, error)

// FirstCandidates walks the tiers in priority order and returns the candidate
// list from the first source that yields any, querying no further sources
// after that. A failing source is reported through onError and counts as
// empty, so a broken source never aborts the tier scan. When every source
// across every tier comes up empty the result is nil: a terminal "not found",
// not an error.
func FirstCandidates(ctx context.Context, e domain.Entity, tiers [][]Definition, search Search, onError func(def Definition, err error)) []domain.Candidate {
	for _, tier := range tiers {
		for _, def := range tier {
			if ctx.Err() != nil {
				return nil
			}
			candidates, err := search(ctx, e, def)
			if err != nil {
				if onError != nil {
					onError(def, err)
				}
				continue
			}
			if len(candidates) > 0 {
				return candidates
			}
		}
	}
	return nil
}
