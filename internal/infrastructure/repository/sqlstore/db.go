// Package sqlstore keeps templates, roster snapshots and the player roster in
// PostgreSQL or SQLite behind one sqlx implementation.
package sqlstore

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "modernc.org/sqlite"
)

type OpenOptions struct {
	DisablePreparedBinaryResult bool
	MaxOpenConns                int
	ConnMaxLifetime             time.Duration
}

// Open connects with OpenTelemetry instrumentation and verifies the
// connection before returning.
func Open(ctx context.Context, dialect qb.Dialect, dsn string, opts OpenOptions) (*sqlx.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, crerr.Newf("%s dsn is required", dialect)
	}

	var (
		driverName string
		system     string
	)
	switch dialect {
	case qb.Postgres:
		driverName, system = "postgres", "postgresql"
		dsn = normalizeDBURL(dsn, opts.DisablePreparedBinaryResult)
	case qb.SQLite:
		driverName, system = "sqlite", "sqlite"
	default:
		return nil, crerr.Newf("unsupported sql dialect %q", dialect)
	}

	db, err := otelsqlx.Open(driverName, dsn,
		otelsql.WithDBSystem(system),
		otelsql.WithDBName(dbNameFromDSN(dialect, dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, crerr.Wrapf(err, "open %s", dialect)
	}

	switch {
	case dialect == qb.SQLite && isSQLiteMemory(dsn):
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, crerr.Wrapf(err, "ping %s", dialect)
	}
	return db, nil
}

func isNotFound(err error) bool {
	return crerr.Is(err, sql.ErrNoRows)
}

func isSQLiteMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	if !disablePreparedBinaryResult {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	if query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}

func dbNameFromDSN(dialect qb.Dialect, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if dialect == qb.SQLite {
		path := strings.TrimPrefix(trimmed, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" || path == ":memory:" {
			return "memory"
		}
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")); name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		name, ok := strings.CutPrefix(token, "dbname=")
		if !ok {
			continue
		}
		if name = strings.Trim(strings.TrimSpace(name), `"'`); name != "" {
			return name
		}
	}

	return ""
}

const maxTracedQueryLength = 512

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}
