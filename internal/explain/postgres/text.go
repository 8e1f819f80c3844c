package postgres

import (
	"strconv"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

// ParseText parses the default text-format EXPLAIN output. Nesting is
// reconstructed purely from line indentation: a line is a child of the
// nearest preceding node iff it starts with the "->" marker and is indented
// strictly deeper. Property lines and unrecognized lines are skipped rather
// than treated as errors.
func ParseText(text string) (*plan.QueryPlan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &StructureError{Reason: "empty EXPLAIN output"}
	}
	lines := strings.Split(text, "\n")

	root, _, err := parseTextNode(lines, 0, 0)
	if err != nil {
		return nil, err
	}
	p := plan.New(root)

	// Timing lines sit at the end of analyze output. Both capitalizations
	// occur across server versions.
	for i := len(lines) - 1; i >= 0 && i >= len(lines)-5; i-- {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, "Planning Time:"), strings.HasPrefix(trimmed, "Planning time:"):
			if ms, ok := extractTimeMS(trimmed); ok {
				p.WithPlanningTime(ms)
			}
		case strings.HasPrefix(trimmed, "Execution Time:"), strings.HasPrefix(trimmed, "Execution time:"):
			if ms, ok := extractTimeMS(trimmed); ok {
				p.WithExecutionTime(ms)
			}
		}
	}

	return p, nil
}

// parseTextNode parses the node at lines[start] and all of its children,
// returning the node and the index of the first unconsumed line. The
// function is index-returning recursive descent; indentation comparison is
// the only nesting signal.
func parseTextNode(lines []string, start, parentIndent int) (*plan.PlanNode, int, error) {
	if start >= len(lines) {
		return nil, start, &StructureError{Reason: "unexpected end of input"}
	}

	line := lines[start]
	indent := countIndent(line)
	content := strings.TrimSpace(line)

	if content == "" || strings.HasPrefix(content, "Planning Time") ||
		strings.HasPrefix(content, "Execution Time") ||
		strings.HasPrefix(content, "Planning time") ||
		strings.HasPrefix(content, "Execution time") {
		if start+1 < len(lines) {
			return parseTextNode(lines, start+1, parentIndent)
		}
		return nil, start, &StructureError{Reason: "no plan nodes found"}
	}

	node := parseTextLine(content)

	next := start + 1
	for next < len(lines) {
		nextLine := lines[next]
		nextIndent := countIndent(nextLine)
		nextContent := strings.TrimSpace(nextLine)

		if nextContent == "" || strings.HasPrefix(nextContent, "Planning") ||
			strings.HasPrefix(nextContent, "Execution") {
			next++
			continue
		}

		// A sibling or shallower line terminates the child loop.
		if nextIndent <= indent {
			break
		}

		if strings.HasPrefix(nextContent, "->") {
			child, afterChild, err := parseTextNode(lines, next, indent)
			if err != nil {
				return nil, next, err
			}
			node.Children = append(node.Children, child)
			next = afterChild
		} else {
			// Property line (Filter:, Sort Key:, ...) — not modeled from
			// text format, skip.
			next++
		}
	}

	return node, next, nil
}

// parseTextLine parses one plan line of the shape
// "Node Type on relation  (cost=S..T rows=R width=W) (actual time=S..T rows=R loops=L)".
func parseTextLine(line string) *plan.PlanNode {
	content := strings.TrimSpace(strings.TrimPrefix(line, "->"))

	typePart := content
	costPart := ""
	if idx := strings.Index(content, "  (cost="); idx >= 0 {
		typePart, costPart = content[:idx], content[idx:]
	} else if idx := strings.Index(content, " (cost="); idx >= 0 {
		typePart, costPart = content[:idx], content[idx:]
	}

	nodeType, relation, indexName := parseTypeAndRelation(typePart)
	node := plan.NewNode(nodeType)
	node.Relation = relation
	node.IndexName = indexName

	if costPart != "" {
		parseCostSection(node, costPart)
	}

	return node
}

// textNodePrefixes maps textual operation spellings to node types, most
// specific first so e.g. "Index Only Scan" wins over "Index Scan" and
// "Hash Join" over "Hash". tokens is how many whitespace-separated words the
// operation name occupies.
var textNodePrefixes = []struct {
	prefix string
	tokens int
	typ    plan.NodeType
}{
	{"Index Only Scan", 3, plan.IndexOnlyScan},
	{"Bitmap Index Scan", 3, plan.BitmapIndexScan},
	{"Bitmap Heap Scan", 3, plan.BitmapHeapScan},
	{"Index Scan", 2, plan.IndexScan},
	{"Seq Scan", 2, plan.SeqScan},
	{"Nested Loop", 2, plan.NestedLoop},
	{"Hash Join", 2, plan.HashJoin},
	{"Merge Join", 2, plan.MergeJoin},
	{"Hash Aggregate", 2, plan.HashAggregate},
	{"HashAggregate", 1, plan.HashAggregate},
	{"Group Aggregate", 2, plan.GroupAggregate},
	{"GroupAggregate", 1, plan.GroupAggregate},
	{"Window Aggregate", 2, plan.WindowAgg},
	{"WindowAgg", 1, plan.WindowAgg},
	{"CTE Scan", 2, plan.CteScan},
	{"Aggregate", 1, plan.Aggregate},
	{"Sort", 1, plan.Sort},
	{"Limit", 1, plan.Limit},
	{"Append", 1, plan.Append},
	{"Materialize", 1, plan.Materialize},
	{"Result", 1, plan.Result},
	{"Gather", 1, plan.Gather},
	{"Unique", 1, plan.Unique},
	{"Hash", 1, plan.Hash},
}

// parseTypeAndRelation splits the pre-cost part of a plan line into the
// operation type, the scanned relation (after "on") and the index used
// (after "using", when it precedes "on").
func parseTypeAndRelation(text string) (plan.NodeType, string, string) {
	nodeType := plan.Unknown
	typeTokens := 0
	for _, entry := range textNodePrefixes {
		if strings.HasPrefix(text, entry.prefix) {
			nodeType = entry.typ
			typeTokens = entry.tokens
			break
		}
	}

	parts := strings.Fields(text)
	if typeTokens > len(parts) {
		typeTokens = len(parts)
	}
	remaining := parts[typeTokens:]

	var relation, indexName string
	for i, tok := range remaining {
		if tok == "on" {
			if i+1 < len(remaining) {
				relation = remaining[i+1]
			}
			for j := 0; j < i; j++ {
				if remaining[j] == "using" && j+1 < i {
					indexName = remaining[j+1]
				}
			}
			break
		}
	}

	return nodeType, relation, indexName
}

// parseCostSection extracts estimates and analyze metrics from the
// parenthesized cost block(s). An analyze block repeats the "S..T" shape for
// actual time, so the actual-time search is anchored after the
// "actual time=" marker and the actual-rows search after the literal
// "actual"; the estimated occurrences earlier on the line are never
// mistaken for them.
func parseCostSection(node *plan.PlanNode, s string) {
	if startupStr, ok := extractBetween(s, "cost=", ".."); ok {
		if startup, err := strconv.ParseFloat(startupStr, 64); err == nil {
			if totalStr, ok := extractBetween(s, "..", " rows="); ok {
				if total, err := strconv.ParseFloat(totalStr, 64); err == nil {
					node.Cost = &plan.NodeCost{Startup: startup, Total: total}
				}
			}
		}
	}

	if rowsStr, ok := extractBetween(s, "rows=", " width="); ok {
		if rows, err := strconv.ParseInt(rowsStr, 10, 64); err == nil {
			node.Rows = &rows
		}
	} else if rowsStr, ok := extractBetween(s, "rows=", ")"); ok {
		if rows, err := strconv.ParseInt(rowsStr, 10, 64); err == nil {
			node.Rows = &rows
		}
	}

	if widthStr, ok := extractBetween(s, "width=", ")"); ok {
		if width, err := strconv.Atoi(widthStr); err == nil {
			node.Width = &width
		}
	}

	if idx := strings.Index(s, "actual time="); idx >= 0 {
		after := s[idx+len("actual time="):]
		if dd := strings.Index(after, ".."); dd >= 0 {
			if startup, err := strconv.ParseFloat(after[:dd], 64); err == nil {
				rest := after[dd+2:]
				if end := strings.Index(rest, " rows="); end >= 0 {
					if total, err := strconv.ParseFloat(strings.TrimSpace(rest[:end]), 64); err == nil {
						node.ActualTime = &plan.ActualTime{Startup: startup, Total: total}
					}
				}
			}
		}
	}

	if idx := strings.Index(s, "actual"); idx >= 0 {
		afterActual := s[idx:]
		if rowsStr, ok := extractBetween(afterActual, "rows=", " loops="); ok {
			if rows, err := strconv.ParseInt(rowsStr, 10, 64); err == nil {
				node.ActualRows = &rows
			}
		} else if rowsStr, ok := extractBetween(afterActual, "rows=", ")"); ok {
			if rows, err := strconv.ParseInt(rowsStr, 10, 64); err == nil {
				node.ActualRows = &rows
			}
		}
	}

	if loopsStr, ok := extractBetween(s, "loops=", ")"); ok {
		if loops, err := strconv.ParseInt(loopsStr, 10, 64); err == nil {
			node.Loops = &loops
		}
	}
}

// extractBetween returns the substring between the first occurrence of start
// and the next occurrence of end after it.
func extractBetween(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	i += len(start)
	j := strings.Index(s[i:], end)
	if j < 0 {
		return "", false
	}
	return s[i : i+j], true
}

func countIndent(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// extractTimeMS pulls the number out of a line like "Planning Time: 0.123 ms".
func extractTimeMS(line string) (float64, bool) {
	_, after, found := strings.Cut(line, ":")
	if !found {
		return 0, false
	}
	value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(after), "ms"))
	ms, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
