package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

// Resolve turns user-supplied input into a parsed plan. Input is a file path,
// "-" for stdin, or "" for an interactive paste. Raw EXPLAIN output is parsed
// with the engine's dialect; a SQL query is executed against dbConn first
// (PostgreSQL only).
func Resolve(ctx context.Context, engine Engine, input string, dbConn string, label string) (*plan.QueryPlan, error) {
	data, err := readInput(input, label)
	if err != nil {
		return nil, err
	}

	switch detectType(data, input) {
	case "sql":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(strings.ToUpper(trimmed), "EXPLAIN") {
			return nil, fmt.Errorf("input should not include EXPLAIN prefix - provide the raw query only")
		}
		if dbConn == "" {
			return nil, fmt.Errorf("SQL input requires a database connection")
		}
		if engine != Postgres {
			return nil, fmt.Errorf("running EXPLAIN for %s is not supported - run it yourself and provide the output", engine)
		}
		return Execute(ctx, dbConn, trimmed)
	default:
		return Parse(engine, string(data))
	}
}

func readInput(input string, label string) ([]byte, error) {
	switch input {
	case "":
		return readInteractive(label)
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(input)
	}
}

func readInteractive(label string) ([]byte, error) {
	fmt.Printf("Paste %sEXPLAIN output or SQL query", label)
	if runtime.GOOS == "windows" {
		fmt.Print(" (Ctrl+Z, Enter to submit)\n")
	} else {
		fmt.Print(" (Ctrl+D to submit)\n")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))

	if (strings.HasPrefix(trimmed, "[") ||
		strings.HasPrefix(trimmed, "{")) &&
		!json.Valid(data) {
		return nil, fmt.Errorf("input appears truncated; for large inputs use: planscope analyze <file>")
	}

	return data, nil
}

// detectType classifies input as a SQL query to run or plan output to parse.
// File extensions take priority over content sniffing.
func detectType(data []byte, filename string) string {
	if strings.HasSuffix(filename, ".sql") {
		return "sql"
	}
	if strings.HasSuffix(filename, ".json") || strings.HasSuffix(filename, ".txt") {
		return "plan"
	}

	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return "plan"
	}
	// Markers of EXPLAIN output across the supported dialects.
	if strings.Contains(trimmed, "(cost=") ||
		strings.HasPrefix(trimmed, "QUERY PLAN") ||
		strings.Contains(trimmed, "|--") || strings.Contains(trimmed, "`--") {
		return "plan"
	}

	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "EXPLAIN"} {
		if strings.HasPrefix(upper, kw) {
			return "sql"
		}
	}

	return "plan"
}
