package explain

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samurmaykrr/planscope/internal/explain/postgres"
	"github.com/samurmaykrr/planscope/internal/plan"
)

// Execute runs EXPLAIN for the given query against a live PostgreSQL database
// and parses the result. The statement runs inside a transaction that is
// always rolled back, so EXPLAIN ANALYZE on writes leaves no trace.
func Execute(ctx context.Context, dbConn string, sql string) (*plan.QueryPlan, error) {
	conn, err := pgx.Connect(ctx, dbConn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := "EXPLAIN (ANALYZE, VERBOSE, FORMAT JSON) " + sql

	var jsonStr string
	if err := tx.QueryRow(ctx, query).Scan(&jsonStr); err != nil {
		return nil, fmt.Errorf("executing EXPLAIN: %w", err)
	}

	return postgres.ParseJSON(jsonStr)
}
