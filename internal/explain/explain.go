// Package explain turns raw EXPLAIN output from a supported engine into the
// canonical plan model, and can run EXPLAIN itself against a live PostgreSQL
// database.
package explain

import (
	"fmt"

	"github.com/samurmaykrr/planscope/internal/explain/mysql"
	"github.com/samurmaykrr/planscope/internal/explain/postgres"
	"github.com/samurmaykrr/planscope/internal/explain/sqlite"
	"github.com/samurmaykrr/planscope/internal/plan"
)

// Engine is a supported database engine.
type Engine string

const (
	Postgres Engine = "postgres"
	SQLite   Engine = "sqlite"
	MySQL    Engine = "mysql"
)

// ParseEngine maps an engine name, including common aliases, to an Engine.
func ParseEngine(name string) (Engine, error) {
	switch name {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return "", fmt.Errorf("unknown engine %q: expected postgres, sqlite, or mysql", name)
}

// Parse parses EXPLAIN output using the given engine's dialect. Each dialect
// auto-detects its own sub-formats (JSON vs text, tree vs tabular).
func Parse(engine Engine, output string) (*plan.QueryPlan, error) {
	switch engine {
	case Postgres:
		return postgres.Parse(output)
	case SQLite:
		return sqlite.Parse(output)
	case MySQL:
		return mysql.Parse(output)
	}
	return nil, fmt.Errorf("unknown engine %q", engine)
}
