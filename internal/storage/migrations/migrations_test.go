package migrations

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second; with a semicolon
CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory;
SELECT 'it''s';`

	stmts, err := splitStatements(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") {
		t.Errorf("unexpected first statement: %q", stmts[0])
	}
	if strings.Contains(stmts[1], "--") || !strings.Contains(stmts[1], "'a;b'") {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
	if stmts[2] != "SELECT 'it''s'" {
		t.Errorf("unexpected third statement: %q", stmts[2])
	}
}

func TestSplitStatements_UnterminatedString(t *testing.T) {
	if _, err := splitStatements("SELECT 'abc;"); err == nil {
		t.Error("expected error for unterminated string literal")
	}
}

func TestLoad_OrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("CREATE TABLE b (x INT);")},
		"m/001_first.sql":  {Data: []byte("CREATE TABLE a (x INT);\nCREATE INDEX i ON a (x);")},
		"m/003_empty.sql":  {Data: []byte("-- nothing yet\n")},
		"m/README.md":      {Data: []byte("ignored")},
	}

	migs, err := Load(fsys, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != "001_first" || migs[1].Version != "002_second" {
		t.Errorf("unexpected order: %s, %s", migs[0].Version, migs[1].Version)
	}
	if len(migs[0].Statements) != 2 {
		t.Errorf("expected 2 statements in 001_first, got %d", len(migs[0].Statements))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for name, load := range map[string]func() ([]Migration, error){
		"postgres":   Postgres,
		"clickhouse": ClickHouse,
	} {
		migs, err := load()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(migs) == 0 {
			t.Fatalf("no %s migrations embedded", name)
		}
		for _, m := range migs {
			for _, stmt := range m.Statements {
				if strings.HasSuffix(stmt, ";") {
					t.Errorf("%s %s: statement keeps its terminator: %q", name, m.Version, stmt)
				}
			}
		}
	}
}
