package player

import "context"

// Repository describes roster lookups needed by the identifier resolver.
type Repository interface {
	FindCandidates(ctx context.Context, teamID, firstLike, lastLike string) ([]Candidate, error)
	FindByShirtNumber(ctx context.Context, teamID string, number int) (Candidate, bool, error)
	ListActiveRoster(ctx context.Context, teamID string) ([]Candidate, error)
}
