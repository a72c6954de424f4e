package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the bind parameter style of the generated SQL.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(raw string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(raw))) {
	case Postgres, "postgresql", "pgx":
		return Postgres, nil
	case SQLite, "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", raw)
	}
}

func (d Dialect) placeholder(i int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(i)
}

type Condition interface {
	appendSQL(w *writer)
}

type writer struct {
	buf      strings.Builder
	args     []any
	argIndex int
	dialect  Dialect
}

func newWriter(dialect Dialect, capacity int) *writer {
	if dialect == "" {
		dialect = Postgres
	}
	return &writer{args: make([]any, 0, capacity), argIndex: 1, dialect: dialect}
}

func (w *writer) bind(value any) {
	w.buf.WriteString(w.dialect.placeholder(w.argIndex))
	w.args = append(w.args, value)
	w.argIndex++
}

type compareCondition struct {
	column string
	op     string
	value  any
}

func Eq(column string, value any) Condition {
	return compareCondition{column: column, op: "=", value: value}
}

func Gt(column string, value any) Condition {
	return compareCondition{column: column, op: ">", value: value}
}

func (c compareCondition) appendSQL(w *writer) {
	w.buf.WriteString(c.column)
	w.buf.WriteString(" ")
	w.buf.WriteString(c.op)
	w.buf.WriteString(" ")
	w.bind(c.value)
}

type lowerLikeCondition struct {
	column string
	value  string
}

// LowerLike matches LOWER(column) against a lower-cased LIKE pattern.
func LowerLike(column, pattern string) Condition {
	return lowerLikeCondition{column: column, value: strings.ToLower(pattern)}
}

func (c lowerLikeCondition) appendSQL(w *writer) {
	w.buf.WriteString("LOWER(")
	w.buf.WriteString(c.column)
	w.buf.WriteString(") LIKE ")
	w.bind(c.value)
	w.buf.WriteString(` ESCAPE '\'`)
}

type prefixCondition struct {
	column string
	prefix string
}

// HasPrefix matches rows whose column starts with the literal prefix.
func HasPrefix(column, prefix string) Condition {
	return prefixCondition{column: column, prefix: prefix}
}

func (c prefixCondition) appendSQL(w *writer) {
	w.buf.WriteString(c.column)
	w.buf.WriteString(" LIKE ")
	w.bind(EscapeLike(c.prefix) + "%")
	w.buf.WriteString(` ESCAPE '\'`)
}

// EscapeLike escapes LIKE wildcards so value matches literally.
func EscapeLike(value string) string {
	return likeEscaper.Replace(value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type isNullCondition struct {
	column string
}

func IsNull(column string) Condition {
	return isNullCondition{column: column}
}

func (c isNullCondition) appendSQL(w *writer) {
	w.buf.WriteString(c.column)
	w.buf.WriteString(" IS NULL")
}

type anyOfCondition struct {
	conditions []Condition
}

// AnyOf joins conditions with OR inside parentheses.
func AnyOf(conditions ...Condition) Condition {
	return anyOfCondition{conditions: conditions}
}

func (c anyOfCondition) appendSQL(w *writer) {
	if len(c.conditions) == 0 {
		w.buf.WriteString("1=0")
		return
	}
	w.buf.WriteString("(")
	for i, cond := range c.conditions {
		if i > 0 {
			w.buf.WriteString(" OR ")
		}
		cond.appendSQL(w)
	}
	w.buf.WriteString(")")
}

type exprCondition struct {
	expr string
	args []any
}

// Expr embeds a raw expression; each ? is bound to the next arg.
func Expr(expr string, args ...any) Condition {
	return exprCondition{expr: expr, args: args}
}

func (c exprCondition) appendSQL(w *writer) {
	w.rewrite(c.expr, c.args)
}

type SelectBuilder struct {
	dialect Dialect
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return Postgres.Select(columns...)
}

func (d Dialect) Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{dialect: d, columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	w := newWriter(b.dialect, len(b.where))
	w.buf.WriteString("SELECT ")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(" FROM ")
	w.buf.WriteString(b.table)
	w.where(b.where)
	if len(b.orderBy) > 0 {
		w.buf.WriteString(" ORDER BY ")
		w.buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.buf.WriteString(" LIMIT ")
		w.buf.WriteString(strconv.Itoa(b.limit))
	}

	return w.buf.String(), w.args, nil
}

type InsertBuilder struct {
	dialect Dialect
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return Postgres.InsertInto(table)
}

func (d Dialect) InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d, table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends raw SQL such as an ON CONFLICT clause.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	w := newWriter(b.dialect, len(b.rows)*len(b.columns))
	w.buf.WriteString("INSERT INTO ")
	w.buf.WriteString(b.table)
	w.buf.WriteString(" (")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(") VALUES ")

	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				w.buf.WriteString(", ")
			}
			w.bind(value)
		}
		w.buf.WriteString(")")
	}

	if b.suffix != "" {
		w.buf.WriteString(" ")
		w.buf.WriteString(b.suffix)
	}

	return w.buf.String(), w.args, nil
}

type DeleteBuilder struct {
	dialect Dialect
	table   string
	where   []Condition
}

func (d Dialect) DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d, table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete without conditions is not allowed")
	}

	w := newWriter(b.dialect, len(b.where))
	w.buf.WriteString("DELETE FROM ")
	w.buf.WriteString(b.table)
	w.where(b.where)
	return w.buf.String(), w.args, nil
}

func (w *writer) where(conditions []Condition) {
	if len(conditions) == 0 {
		return
	}
	w.buf.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			w.buf.WriteString(" AND ")
		}
		c.appendSQL(w)
	}
}

func (w *writer) rewrite(expr string, exprArgs []any) {
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(exprArgs) {
			w.bind(exprArgs[next])
			next++
			continue
		}
		w.buf.WriteByte(expr[i])
	}
}
