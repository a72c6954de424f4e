package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "first_name").
		From("players").
		Where(Eq("team_id", "t1"), Eq("active", true)).
		OrderBy("last_name", "first_name").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, first_name FROM players WHERE team_id = $1 AND active = $2 ORDER BY last_name, first_name LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "t1" || args[1] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_SQLitePlaceholders(t *testing.T) {
	query, args, err := SQLite.Select("value", "expires_at").
		From("kv_entries").
		Where(Eq("key", "k1"), AnyOf(IsNull("expires_at"), Gt("expires_at", int64(42)))).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT value, expires_at FROM kv_entries WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[1] != int64(42) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestLowerLike(t *testing.T) {
	query, args, err := Select("id").
		From("players").
		Where(LowerLike("last_name", "Ross%")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := `SELECT id FROM players WHERE LOWER(last_name) LIKE $1 ESCAPE '\'`
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if args[0] != "ross%" {
		t.Fatalf("pattern must be lower-cased, got %v", args[0])
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("kv_entries").
		Columns("key", "value").
		Values("k1", []byte("v")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO kv_entries (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "k1" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertInto("kv_entries").Columns("key", "value").Values("only-one").ToSQL(); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := SQLite.DeleteFrom("kv_entries").
		Where(HasPrefix("key", "team_players:t_1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := `DELETE FROM kv_entries WHERE key LIKE ? ESCAPE '\'`
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if args[0] != `team\_players:t\_1%` {
		t.Fatalf("prefix must be escaped, got %v", args[0])
	}

	if _, _, err := Postgres.DeleteFrom("kv_entries").ToSQL(); err == nil {
		t.Fatalf("expected error for unconditional delete")
	}
}

func TestExprBindsInOrder(t *testing.T) {
	query, args, err := Select("id").
		From("players").
		Where(Eq("team_id", "t1"), Expr("shirt_number = ? OR shirt_number = ?", 9, 10)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM players WHERE team_id = $1 AND shirt_number = $2 OR shirt_number = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{"postgres": Postgres, "PostgreSQL": Postgres, "sqlite": SQLite, "sqlite3": SQLite}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q): got=%q err=%v want=%q", in, got, err, want)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected error for unsupported dialect")
	}
}
