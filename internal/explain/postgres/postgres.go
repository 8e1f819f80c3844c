// Package postgres parses PostgreSQL EXPLAIN output, in both the JSON format
// (EXPLAIN (FORMAT JSON)) and the default indented text format, into the
// canonical plan model.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

var (
	// ErrMissingPlan is returned when the JSON input carries no "Plan" object.
	ErrMissingPlan = errors.New("missing Plan object in EXPLAIN output")
	// ErrUnsupportedFormat is returned when the input is neither JSON nor
	// recognizable EXPLAIN text.
	ErrUnsupportedFormat = errors.New("unsupported format: expected JSON array or text")
)

// StructureError reports EXPLAIN output whose overall shape cannot be parsed.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "invalid plan structure: " + e.Reason
}

// Parse parses PostgreSQL EXPLAIN output, auto-detecting the format: input
// starting with '[' or '{' is treated as JSON, anything else as text.
func Parse(output string) (*plan.QueryPlan, error) {
	trimmed := strings.TrimSpace(output)

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return ParseJSON(trimmed)
	}
	return ParseText(trimmed)
}

// ParseJSON parses EXPLAIN (FORMAT JSON) output. PostgreSQL wraps the plan in
// a single-element array; a bare {"Plan": ...} object is also accepted.
func ParseJSON(input string) (*plan.QueryPlan, error) {
	var value any
	if err := json.Unmarshal([]byte(input), &value); err != nil {
		return nil, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}

	var wrapper map[string]any
	switch v := value.(type) {
	case []any:
		if len(v) == 0 {
			return nil, ErrMissingPlan
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return nil, ErrMissingPlan
		}
		wrapper = first
	case map[string]any:
		wrapper = v
	default:
		return nil, ErrMissingPlan
	}

	planObj, ok := wrapper["Plan"].(map[string]any)
	if !ok {
		return nil, ErrMissingPlan
	}

	root, err := parsePlanNode(planObj)
	if err != nil {
		return nil, err
	}
	p := plan.New(root)

	// Timing lives beside the Plan in the wrapping element, present only for
	// analyze-style EXPLAIN.
	if ms, ok := jsonFloat(wrapper, "Planning Time"); ok {
		p.WithPlanningTime(ms)
	}
	if ms, ok := jsonFloat(wrapper, "Execution Time"); ok {
		p.WithExecutionTime(ms)
	}

	return p, nil
}

// knownKeys lists every attribute the canonical schema captures in a named
// field. Everything else on a plan object is preserved in the node's Extra
// map.
var knownKeys = map[string]bool{
	"Node Type":              true,
	"Relation Name":          true,
	"Schema":                 true,
	"Alias":                  true,
	"Startup Cost":           true,
	"Total Cost":             true,
	"Plan Rows":              true,
	"Plan Width":             true,
	"Actual Rows":            true,
	"Actual Startup Time":    true,
	"Actual Total Time":      true,
	"Actual Loops":           true,
	"Filter":                 true,
	"Rows Removed by Filter": true,
	"Index Name":             true,
	"Index Cond":             true,
	"Join Type":              true,
	"Join Filter":            true,
	"Hash Cond":              true,
	"Merge Cond":             true,
	"Sort Key":               true,
	"Sort Method":            true,
	"Sort Space Used":        true,
	"Hash Buckets":           true,
	"Hash Batches":           true,
	"Group Key":              true,
	"Output":                 true,
	"Plans":                  true,
}

func parsePlanNode(obj map[string]any) (*plan.PlanNode, error) {
	nodeTypeStr, ok := obj["Node Type"].(string)
	if !ok {
		return nil, &StructureError{Reason: "missing Node Type"}
	}

	node := plan.NewNode(plan.NodeTypeFromPostgres(nodeTypeStr))

	if rel, ok := obj["Relation Name"].(string); ok {
		node.Relation = rel
	}
	if schema, ok := obj["Schema"].(string); ok {
		node.Schema = schema
	}
	if alias, ok := obj["Alias"].(string); ok {
		node.Alias = alias
	}

	if startup, ok := jsonFloat(obj, "Startup Cost"); ok {
		if total, ok := jsonFloat(obj, "Total Cost"); ok {
			node.Cost = &plan.NodeCost{Startup: startup, Total: total}
		}
	}

	if rows, ok := jsonInt(obj, "Plan Rows"); ok {
		node.Rows = &rows
	}
	if width, ok := jsonInt(obj, "Plan Width"); ok {
		w := int(width)
		node.Width = &w
	}

	if rows, ok := jsonInt(obj, "Actual Rows"); ok {
		node.ActualRows = &rows
	}
	if startup, ok := jsonFloat(obj, "Actual Startup Time"); ok {
		if total, ok := jsonFloat(obj, "Actual Total Time"); ok {
			node.ActualTime = &plan.ActualTime{Startup: startup, Total: total}
		}
	}
	if loops, ok := jsonInt(obj, "Actual Loops"); ok {
		node.Loops = &loops
	}

	if filter, ok := obj["Filter"].(string); ok {
		node.Filter = filter
	}
	if removed, ok := jsonInt(obj, "Rows Removed by Filter"); ok {
		node.RowsRemovedByFilter = &removed
	}

	if idx, ok := obj["Index Name"].(string); ok {
		node.IndexName = idx
	}
	if cond, ok := obj["Index Cond"].(string); ok {
		node.IndexCond = cond
	}

	if joinStr, ok := obj["Join Type"].(string); ok {
		if jt, ok := plan.ParseJoinType(joinStr); ok {
			node.JoinType = jt
		}
	}

	// Join condition, in priority order.
	if cond, ok := obj["Hash Cond"].(string); ok {
		node.JoinCond = cond
	} else if cond, ok := obj["Merge Cond"].(string); ok {
		node.JoinCond = cond
	} else if cond, ok := obj["Join Filter"].(string); ok {
		node.JoinCond = cond
	}

	node.SortKeys = jsonStrings(obj, "Sort Key")
	if method, ok := obj["Sort Method"].(string); ok {
		node.SortMethod = method
	}
	if mem, ok := jsonInt(obj, "Sort Space Used"); ok {
		node.MemoryUsedKB = &mem
	}

	if buckets, ok := jsonInt(obj, "Hash Buckets"); ok {
		node.HashBuckets = &buckets
	}
	if batches, ok := jsonInt(obj, "Hash Batches"); ok {
		node.HashBatches = &batches
	}

	node.GroupKeys = jsonStrings(obj, "Group Key")
	node.Output = jsonStrings(obj, "Output")

	if children, ok := obj["Plans"].([]any); ok {
		for _, childVal := range children {
			childObj, ok := childVal.(map[string]any)
			if !ok {
				return nil, &StructureError{Reason: "child plan is not an object"}
			}
			child, err := parsePlanNode(childObj)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}

	for key, val := range obj {
		if !knownKeys[key] {
			node.PutExtra(key, val)
		}
	}

	return node, nil
}

func jsonFloat(obj map[string]any, key string) (float64, bool) {
	f, ok := obj[key].(float64)
	return f, ok
}

func jsonInt(obj map[string]any, key string) (int64, bool) {
	f, ok := obj[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func jsonStrings(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
