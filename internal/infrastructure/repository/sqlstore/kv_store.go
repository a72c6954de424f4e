package sqlstore

import (
	"context"
	"database/sql"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
)

const kvTable = "kv_entries"

type kvRow struct {
	Value     []byte        `db:"value"`
	ExpiresAt sql.NullInt64 `db:"expires_at"`
}

// KVStore is a kv.Store over the kv_entries table. Expiry is kept as unix
// milliseconds so both dialects compare it the same way.
type KVStore struct {
	db      *sqlx.DB
	dialect qb.Dialect
	now     func() time.Time
}

func NewKVStore(db *sqlx.DB, dialect qb.Dialect) *KVStore {
	return &KVStore{db: db, dialect: dialect, now: time.Now}
}

func (s *KVStore) live() qb.Condition {
	return qb.AnyOf(qb.IsNull("expires_at"), qb.Gt("expires_at", s.now().UnixMilli()))
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := s.dialect.Select("value", "expires_at").
		From(kvTable).
		Where(qb.Eq("key", key), s.live()).
		ToSQL()
	if err != nil {
		return nil, false, crerr.Wrap(err, "build select kv entry query")
	}

	var row kvRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, crerr.Wrapf(err, "select kv entry %q", key)
	}
	return row.Value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}
	if value == nil {
		value = []byte{}
	}

	query, args, err := s.dialect.InsertInto(kvTable).
		Columns("key", "value", "expires_at").
		Values(key, value, expiresAt).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at").
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build upsert kv entry query")
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "upsert kv entry %q", key)
	}
	return nil
}

func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	query, args, err := s.dialect.Select("1").
		From(kvTable).
		Where(qb.Eq("key", key), s.live()).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build exists kv entry query")
	}

	var one int
	if err := s.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, crerr.Wrapf(err, "check kv entry %q", key)
	}
	return true, nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.dialect.DeleteFrom(kvTable).Where(qb.Eq("key", key)).ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build delete kv entry query")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "delete kv entry %q", key)
	}
	return nil
}

func (s *KVStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, nil
	}

	query, args, err := s.dialect.DeleteFrom(kvTable).
		Where(qb.HasPrefix("key", prefix)).
		ToSQL()
	if err != nil {
		return 0, crerr.Wrap(err, "build delete kv prefix query")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, crerr.Wrapf(err, "delete kv prefix %q", prefix)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, crerr.Wrap(err, "read deleted kv rows")
	}
	return int(n), nil
}

func (s *KVStore) Healthy(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Sweep deletes expired rows and reports how many were removed.
func (s *KVStore) Sweep(ctx context.Context) (int, error) {
	query, args, err := s.dialect.DeleteFrom(kvTable).
		Where(qb.Expr("expires_at IS NOT NULL AND expires_at <= ?", s.now().UnixMilli())).
		ToSQL()
	if err != nil {
		return 0, crerr.Wrap(err, "build sweep kv query")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, crerr.Wrap(err, "sweep expired kv entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, crerr.Wrap(err, "read swept kv rows")
	}
	return int(n), nil
}
