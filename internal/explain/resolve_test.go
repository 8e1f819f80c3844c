package explain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samurmaykrr/planscope/internal/plan"
)

func TestDetectType_SQLExtension(t *testing.T) {
	result := detectType([]byte("anything"), "query.sql")
	if result != "sql" {
		t.Errorf("got %q, want sql", result)
	}
}

func TestDetectType_PlanExtensions(t *testing.T) {
	for _, name := range []string{"plan.json", "explain.txt"} {
		result := detectType([]byte("anything"), name)
		if result != "plan" {
			t.Errorf("detectType(_, %q) = %q, want plan", name, result)
		}
	}
}

func TestDetectType_JSONContent(t *testing.T) {
	data := []byte(`  [{"Plan": {"Node Type": "Seq Scan"}}]`)
	if result := detectType(data, ""); result != "plan" {
		t.Errorf("got %q, want plan", result)
	}
}

func TestDetectType_TextPlanContent(t *testing.T) {
	for _, data := range []string{
		"Seq Scan on users  (cost=0.00..18.50 rows=850 width=36)",
		"QUERY PLAN\n|--SCAN users",
	} {
		if result := detectType([]byte(data), ""); result != "plan" {
			t.Errorf("detectType(%q) = %q, want plan", data, result)
		}
	}
}

func TestDetectType_SQLContent(t *testing.T) {
	data := []byte("SELECT * FROM users WHERE id = 1")
	if result := detectType(data, ""); result != "sql" {
		t.Errorf("got %q, want sql", result)
	}
}

func TestDetectType_ExtensionOverridesContent(t *testing.T) {
	data := []byte(`[{"Plan": {}}]`)
	if result := detectType(data, "queries.sql"); result != "sql" {
		t.Errorf("got %q, want sql (extension takes priority)", result)
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		name string
		want Engine
	}{
		{"postgres", Postgres},
		{"postgresql", Postgres},
		{"pg", Postgres},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
		{"mysql", MySQL},
		{"mariadb", MySQL},
	}
	for _, tt := range tests {
		got, err := ParseEngine(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseEngine(%q) = %q, %v, want %q", tt.name, got, err, tt.want)
		}
	}
	if _, err := ParseEngine("oracle"); err == nil {
		t.Error("expected error for unsupported engine")
	}
}

func TestParse_DispatchesPerEngine(t *testing.T) {
	tests := []struct {
		engine Engine
		input  string
		want   plan.NodeType
	}{
		{Postgres, `[{"Plan": {"Node Type": "Seq Scan", "Relation Name": "users"}}]`, plan.SeqScan},
		{SQLite, "QUERY PLAN\n|--SCAN users", plan.SeqScan},
		{MySQL, `{"query_block": {"table": {"table_name": "users", "access_type": "ALL"}}}`, plan.SeqScan},
	}

	for _, tt := range tests {
		p, err := Parse(tt.engine, tt.input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.engine, err)
		}
		if p.Root.NodeType != tt.want {
			t.Errorf("%s: NodeType = %q, want %q", tt.engine, p.Root.NodeType, tt.want)
		}
		if p.Root.Relation != "users" {
			t.Errorf("%s: Relation = %q, want users", tt.engine, p.Root.Relation)
		}
	}
}

func TestResolve_PostgresJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	content := []byte(`[{
		"Plan": {
			"Node Type": "Seq Scan",
			"Relation Name": "users",
			"Startup Cost": 0.0,
			"Total Cost": 20.0,
			"Plan Rows": 100,
			"Plan Width": 8
		},
		"Planning Time": 0.1,
		"Execution Time": 0.2
	}]`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := Resolve(context.Background(), Postgres, path, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Root.NodeType != plan.SeqScan {
		t.Errorf("NodeType = %q, want %q", p.Root.NodeType, plan.SeqScan)
	}
}

func TestResolve_SQLiteTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explain.txt")
	content := []byte("QUERY PLAN\n|--SCAN users\n`--USE TEMP B-TREE FOR ORDER BY")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := Resolve(context.Background(), SQLite, path, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.HasSequentialScans() {
		t.Error("expected a sequential scan in the parsed plan")
	}
}

func TestResolve_SQLWithoutDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")
	if err := os.WriteFile(path, []byte("SELECT 1"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Resolve(context.Background(), Postgres, path, "", "")
	if err == nil {
		t.Fatal("expected error for SQL input without DB connection")
	}
}

func TestResolve_SQLWithExplainPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")
	if err := os.WriteFile(path, []byte("EXPLAIN SELECT 1"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Resolve(context.Background(), Postgres, path, "postgres://localhost/db", "")
	if err == nil {
		t.Fatal("expected error for EXPLAIN-prefixed input")
	}
}

func TestResolve_SQLAgainstNonPostgres(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")
	if err := os.WriteFile(path, []byte("SELECT 1"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Resolve(context.Background(), SQLite, path, "whatever", "")
	if err == nil {
		t.Fatal("expected error for live EXPLAIN against sqlite")
	}
}

func TestResolve_MissingFile(t *testing.T) {
	_, err := Resolve(context.Background(), Postgres, "/nonexistent/file.json", "", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"Plan": {"Node Type": "Seq Sc`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Resolve(context.Background(), Postgres, path, "", "")
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
