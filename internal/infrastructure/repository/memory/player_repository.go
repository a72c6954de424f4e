package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/perf-import/internal/domain/player"
)

// PlayerRepository serves rosters from memory. Name fragments match the way
// the SQL repository does: case-insensitive containment.
type PlayerRepository struct {
	mu     sync.RWMutex
	byTeam map[string][]player.Candidate
}

func NewPlayerRepository(players []player.Candidate) *PlayerRepository {
	r := &PlayerRepository{byTeam: make(map[string][]player.Candidate)}
	r.Add(players...)
	return r
}

// Add appends players to their team roster.
func (r *PlayerRepository) Add(players ...player.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		r.byTeam[p.TeamID] = append(r.byTeam[p.TeamID], p)
	}
	for teamID := range r.byTeam {
		roster := r.byTeam[teamID]
		sort.SliceStable(roster, func(i, j int) bool {
			if roster[i].LastName != roster[j].LastName {
				return roster[i].LastName < roster[j].LastName
			}
			return roster[i].FirstName < roster[j].FirstName
		})
	}
}

func (r *PlayerRepository) ListActiveRoster(_ context.Context, teamID string) ([]player.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := r.byTeam[teamID]
	out := make([]player.Candidate, 0, len(roster))
	out = append(out, roster...)
	return out, nil
}

func (r *PlayerRepository) FindCandidates(_ context.Context, teamID, firstLike, lastLike string) ([]player.Candidate, error) {
	first := strings.ToLower(strings.TrimSpace(firstLike))
	last := strings.ToLower(strings.TrimSpace(lastLike))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Candidate, 0)
	for _, p := range r.byTeam[teamID] {
		if first != "" && !strings.Contains(strings.ToLower(p.FirstName), first) {
			continue
		}
		if last != "" && !strings.Contains(strings.ToLower(p.LastName), last) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PlayerRepository) FindByShirtNumber(_ context.Context, teamID string, number int) (player.Candidate, bool, error) {
	if number <= 0 {
		return player.Candidate{}, false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byTeam[teamID] {
		if p.ShirtNumber == number {
			return p, true, nil
		}
	}
	return player.Candidate{}, false, nil
}
