package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
)

const maxCandidateRows = 50

type playerTableModel struct {
	ID          string        `db:"id"`
	TeamID      string        `db:"team_id"`
	FirstName   string        `db:"first_name"`
	LastName    string        `db:"last_name"`
	Position    string        `db:"position"`
	ShirtNumber sql.NullInt64 `db:"shirt_number"`
}

func (m playerTableModel) candidate() player.Candidate {
	return player.Candidate{
		PlayerID:    m.ID,
		TeamID:      m.TeamID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Position:    player.ParsePosition(m.Position),
		ShirtNumber: int(m.ShirtNumber.Int64),
	}
}

var playerSelectColumns = []string{
	"id",
	"team_id",
	"first_name",
	"last_name",
	"position",
	"shirt_number",
}

type PlayerRepository struct {
	db      *sqlx.DB
	dialect qb.Dialect
}

func NewPlayerRepository(db *sqlx.DB, dialect qb.Dialect) *PlayerRepository {
	return &PlayerRepository{db: db, dialect: dialect}
}

func (r *PlayerRepository) ListActiveRoster(ctx context.Context, teamID string) ([]player.Candidate, error) {
	query, args, err := r.dialect.Select(playerSelectColumns...).From("players").
		Where(
			qb.Eq("team_id", teamID),
			qb.Eq("active", true),
		).
		OrderBy("last_name", "first_name").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build select active roster query")
	}

	return r.selectCandidates(ctx, query, args, "select active roster")
}

// FindCandidates matches players whose names contain the given fragments,
// case-insensitively. An empty fragment matches everything.
func (r *PlayerRepository) FindCandidates(ctx context.Context, teamID, firstLike, lastLike string) ([]player.Candidate, error) {
	conditions := []qb.Condition{
		qb.Eq("team_id", teamID),
		qb.Eq("active", true),
	}
	if first := strings.TrimSpace(firstLike); first != "" {
		conditions = append(conditions, qb.LowerLike("first_name", "%"+qb.EscapeLike(first)+"%"))
	}
	if last := strings.TrimSpace(lastLike); last != "" {
		conditions = append(conditions, qb.LowerLike("last_name", "%"+qb.EscapeLike(last)+"%"))
	}

	query, args, err := r.dialect.Select(playerSelectColumns...).From("players").
		Where(conditions...).
		OrderBy("last_name", "first_name").
		Limit(maxCandidateRows).
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build select player candidates query")
	}

	return r.selectCandidates(ctx, query, args, "select player candidates")
}

func (r *PlayerRepository) FindByShirtNumber(ctx context.Context, teamID string, number int) (player.Candidate, bool, error) {
	query, args, err := r.dialect.Select(playerSelectColumns...).From("players").
		Where(
			qb.Eq("team_id", teamID),
			qb.Eq("shirt_number", number),
			qb.Eq("active", true),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Candidate{}, false, crerr.Wrap(err, "build select player by shirt number query")
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Candidate{}, false, nil
		}
		return player.Candidate{}, false, crerr.Wrapf(err, "select player by shirt number %d", number)
	}
	return row.candidate(), true, nil
}

// Upsert inserts or refreshes roster players. Used by seeding and tests.
func (r *PlayerRepository) Upsert(ctx context.Context, players ...player.Candidate) error {
	if len(players) == 0 {
		return nil
	}

	builder := r.dialect.InsertInto("players").
		Columns("id", "team_id", "first_name", "last_name", "position", "shirt_number", "active")
	for _, p := range players {
		if err := p.Validate(); err != nil {
			return crerr.Wrapf(err, "player %q", p.PlayerID)
		}
		shirt := sql.NullInt64{Int64: int64(p.ShirtNumber), Valid: p.ShirtNumber > 0}
		builder.Values(p.PlayerID, p.TeamID, p.FirstName, p.LastName, string(p.Position), shirt, true)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (id) DO UPDATE SET team_id = excluded.team_id, first_name = excluded.first_name, " +
			"last_name = excluded.last_name, position = excluded.position, shirt_number = excluded.shirt_number, " +
			"active = excluded.active").
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build upsert players query")
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrap(err, "upsert players")
	}
	return nil
}

func (r *PlayerRepository) selectCandidates(ctx context.Context, query string, args []any, op string) ([]player.Candidate, error) {
	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, op)
	}

	out := make([]player.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.candidate())
	}
	return out, nil
}
