// Package sqlite parses SQLite EXPLAIN QUERY PLAN output into the canonical
// plan model. Three shapes are accepted: the tree format with |-- and `--
// markers, the tabular id|parent|notused|detail format, and bare
// one-operation-per-line output.
package sqlite

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

// ErrEmptyOutput is returned when the input contains no plan rows at all.
var ErrEmptyOutput = errors.New("empty EXPLAIN output")

// Parse parses EXPLAIN QUERY PLAN output, auto-detecting the shape. Parsing
// is best-effort: unrecognized detail strings become Unknown nodes rather
// than errors, so the only failure mode is empty input.
func Parse(output string) (*plan.QueryPlan, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, ErrEmptyOutput
	}

	if strings.HasPrefix(trimmed, "QUERY PLAN") || strings.Contains(trimmed, "|--") ||
		strings.Contains(trimmed, "`--") {
		return parseTree(trimmed)
	}
	if isTabular(trimmed) {
		return parseTabular(trimmed)
	}
	return parseSimple(trimmed)
}

// isTabular reports whether the first line looks like an
// id|parent|notused|detail row: at least four pipe-separated fields with a
// numeric first field.
func isTabular(output string) bool {
	if !strings.Contains(output, "|") {
		return false
	}
	first, _, _ := strings.Cut(output, "\n")
	fields := strings.Split(first, "|")
	if len(fields) < 4 {
		return false
	}
	_, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
	return err == nil
}

// parseTree parses the tree format. Nesting depth is recovered from the
// number of marker/indent characters before each detail string; a stack
// reattaches each finished node to the nearest shallower line.
func parseTree(output string) (*plan.QueryPlan, error) {
	lines := strings.Split(output, "\n")

	start := 0
	if strings.HasPrefix(strings.TrimSpace(lines[0]), "QUERY PLAN") {
		start = 1
	}
	if start >= len(lines) {
		// A bare header is a valid, empty plan.
		return plan.New(plan.NewNode(plan.Result)), nil
	}

	type entry struct {
		indent int
		node   *plan.PlanNode
	}
	var roots []*plan.PlanNode
	var stack []entry

	pop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, top.node)
		} else {
			roots = append(roots, top.node)
		}
	}

	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent, detail := parseTreeLine(line)
		node := parseDetail(detail)

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			pop()
		}
		stack = append(stack, entry{indent: indent, node: node})
	}
	for len(stack) > 0 {
		pop()
	}

	switch len(roots) {
	case 0:
		return plan.New(plan.NewNode(plan.Result)), nil
	case 1:
		return plan.New(roots[0]), nil
	default:
		root := plan.NewNode(plan.Append)
		root.Children = roots
		return plan.New(root), nil
	}
}

// parseTreeLine strips the |--, `-- and whitespace prefix from a tree line,
// returning the prefix width as the nesting depth and the remaining detail
// text.
func parseTreeLine(line string) (int, string) {
	indent := 0
	i := 0
	for i < len(line) {
		switch line[i] {
		case ' ', '|':
			indent++
			i++
			continue
		case '-':
			i++
			if i < len(line) && line[i] == '-' {
				i++
			}
		case '`':
			i++
			for n := 0; n < 2 && i < len(line) && line[i] == '-'; n++ {
				i++
			}
		}
		break
	}
	return indent, strings.TrimSpace(line[i:])
}

// parseTabular parses id|parent|notused|detail rows (the pre-3.24 shell
// output and the sqlite3_stmt scanstatus form).
func parseTabular(output string) (*plan.QueryPlan, error) {
	var nodes []*plan.PlanNode

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 4)
		if len(fields) < 4 {
			continue
		}
		// The detail field may itself contain pipes; SplitN keeps it whole.
		nodes = append(nodes, parseDetail(fields[3]))
	}

	return assembleFlat(nodes)
}

// parseSimple parses bare one-operation-per-line output.
func parseSimple(output string) (*plan.QueryPlan, error) {
	var nodes []*plan.PlanNode

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nodes = append(nodes, parseDetail(line))
	}

	return assembleFlat(nodes)
}

// assembleFlat turns a flat operation list into a tree. Two operations are
// read as a join pair and wrapped in an inner nested loop; three or more are
// independent legs and wrapped in an Append. The two-vs-many distinction is a
// heuristic, not a verified semantic mapping.
func assembleFlat(nodes []*plan.PlanNode) (*plan.QueryPlan, error) {
	switch len(nodes) {
	case 0:
		return nil, ErrEmptyOutput
	case 1:
		return plan.New(nodes[0]), nil
	case 2:
		join := plan.NewNode(plan.NestedLoop)
		join.JoinType = plan.JoinInner
		join.Children = nodes
		return plan.New(join), nil
	default:
		root := plan.NewNode(plan.Append)
		root.Children = nodes
		return plan.New(root), nil
	}
}

// parseDetail interprets one free-text detail string. Dispatch is on the
// leading keyword; anything unrecognized becomes an Unknown node carrying the
// raw text as its description.
func parseDetail(detail string) *plan.PlanNode {
	detail = strings.TrimSpace(detail)
	upper := strings.ToUpper(detail)

	switch {
	case strings.HasPrefix(upper, "SCAN"):
		return parseScan(detail, upper)
	case strings.HasPrefix(upper, "SEARCH"):
		return parseSearch(detail, upper)
	case strings.HasPrefix(upper, "USE TEMP B-TREE"), strings.HasPrefix(upper, "USING TEMP B-TREE"):
		return parseTempBTree(detail, upper)
	case strings.HasPrefix(upper, "COMPOUND SUBQUERIES"):
		node := plan.NewNode(plan.SetOp)
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "CORRELATED"), strings.HasPrefix(upper, "SCALAR SUBQUERY"):
		node := plan.NewNode(plan.SubqueryScan)
		node.Description = detail
		if strings.Contains(upper, "CORRELATED") {
			node.PutExtra("correlated", true)
		}
		return node
	case strings.HasPrefix(upper, "CO-ROUTINE"):
		node := plan.NewNode(plan.CteScan)
		node.Description = detail
		if parts := strings.Fields(detail); len(parts) > 1 {
			node.Relation = parts[1]
		}
		return node
	case strings.HasPrefix(upper, "EXECUTE"):
		node := plan.NewNode(plan.Result)
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "MATERIALIZE"):
		node := plan.NewNode(plan.Materialize)
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "UNION"):
		t := plan.SetOp
		if strings.Contains(upper, "UNION ALL") {
			t = plan.Append
		}
		node := plan.NewNode(t)
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "MERGE"):
		node := plan.NewNode(plan.MergeAppend)
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "LEFT"), strings.HasPrefix(upper, "RIGHT"):
		node := plan.NewNode(plan.NestedLoop)
		if strings.Contains(upper, "LEFT") {
			node.JoinType = plan.JoinLeft
		} else {
			node.JoinType = plan.JoinRight
		}
		node.Description = detail
		return node
	case strings.HasPrefix(upper, "BLOOM FILTER"):
		node := plan.NewNode(plan.Hash)
		node.Description = detail
		node.PutExtra("bloom_filter", true)
		return node
	case strings.HasPrefix(upper, "LIST SUBQUERY"):
		node := plan.NewNode(plan.SubqueryScan)
		node.Description = detail
		node.PutExtra("list_subquery", true)
		return node
	case strings.Contains(upper, "AUTOMATIC COVERING INDEX"), strings.Contains(upper, "AUTO-INDEX"):
		node := plan.NewNode(plan.IndexOnlyScan)
		node.Description = detail
		node.IndexName = "AUTO-INDEX"
		node.PutExtra("auto_index", true)
		if rel, ok := extractTableName(detail, "AUTOMATIC COVERING INDEX"); ok {
			node.Relation = rel
		}
		return node
	default:
		node := plan.NewNode(plan.Unknown)
		node.Description = detail
		return node
	}
}

// parseScan handles SCAN lines: "SCAN users", "SCAN TABLE users AS u",
// "SCAN users USING COVERING INDEX idx_all", "SCAN CONSTANT ROW".
func parseScan(detail, upper string) *plan.PlanNode {
	node := plan.NewNode(plan.SeqScan)

	if strings.Contains(upper, "USING COVERING INDEX") {
		node.NodeType = plan.IndexOnlyScan
		if idx, ok := extractIndexName(detail, "COVERING INDEX"); ok {
			node.IndexName = idx
		}
	} else if strings.Contains(upper, "USING INDEX") {
		node.NodeType = plan.IndexScan
		if idx, ok := extractIndexName(detail, "INDEX"); ok {
			node.IndexName = idx
		}
	}

	if rel, ok := extractTableName(detail, "SCAN"); ok {
		node.Relation = rel
	}

	if strings.Contains(upper, "CONSTANT ROW") {
		node.NodeType = plan.ValuesScan
		node.Description = "Constant row"
	}
	if strings.Contains(upper, "SUBQUERY") {
		node.NodeType = plan.SubqueryScan
	}

	return node
}

// parseSearch handles SEARCH lines, which are always some flavor of index
// lookup: "SEARCH users USING INDEX idx_email (email=?)",
// "SEARCH items USING INTEGER PRIMARY KEY (rowid=?)".
func parseSearch(detail, upper string) *plan.PlanNode {
	node := plan.NewNode(plan.IndexScan)

	switch {
	case strings.Contains(upper, "USING COVERING INDEX"):
		node.NodeType = plan.IndexOnlyScan
		if idx, ok := extractIndexName(detail, "COVERING INDEX"); ok {
			node.IndexName = idx
		}
	case strings.Contains(upper, "USING INDEX"):
		if idx, ok := extractIndexName(detail, "INDEX"); ok {
			node.IndexName = idx
		}
	case strings.Contains(upper, "INTEGER PRIMARY KEY"), strings.Contains(upper, "ROWID"):
		node.IndexName = "PRIMARY KEY"
	case strings.Contains(upper, "AUTOMATIC COVERING INDEX"), strings.Contains(upper, "AUTO-INDEX"):
		node.NodeType = plan.IndexOnlyScan
		node.IndexName = "AUTO-INDEX"
		node.PutExtra("auto_index", true)
	}

	if rel, ok := extractTableName(detail, "SEARCH"); ok {
		node.Relation = rel
	}
	if cond, ok := extractIndexCondition(detail); ok {
		node.IndexCond = cond
	}

	return node
}

// parseTempBTree handles USE TEMP B-TREE lines, which reveal the implicit
// operation SQLite runs the b-tree for.
func parseTempBTree(detail, upper string) *plan.PlanNode {
	var node *plan.PlanNode
	switch {
	case strings.Contains(upper, "ORDER BY"):
		node = plan.NewNode(plan.Sort)
		node.Description = "Temporary B-tree for ORDER BY"
	case strings.Contains(upper, "DISTINCT"):
		node = plan.NewNode(plan.Unique)
		node.Description = "Temporary B-tree for DISTINCT"
	case strings.Contains(upper, "GROUP BY"):
		node = plan.NewNode(plan.HashAggregate)
		node.Description = "Temporary B-tree for GROUP BY"
	default:
		node = plan.NewNode(plan.Sort)
		node.Description = detail
		return node
	}
	node.PutExtra("using_temp_btree", true)
	return node
}

// extractTableName pulls the table name following the operation keyword,
// skipping an optional TABLE keyword and rejecting the CONSTANT and SUBQUERY
// pseudo-names.
func extractTableName(detail, operation string) (string, bool) {
	upper := strings.ToUpper(detail)
	opUpper := strings.ToUpper(operation)

	i := strings.Index(upper, opUpper)
	if i < 0 {
		return "", false
	}
	remaining := strings.TrimSpace(detail[i+len(opUpper):])

	if strings.HasPrefix(strings.ToUpper(remaining), "TABLE ") {
		remaining = strings.TrimSpace(remaining[6:])
	}

	name, _, _ := strings.Cut(remaining, " ")
	switch strings.ToUpper(name) {
	case "", "CONSTANT", "SUBQUERY":
		return "", false
	}
	return name, true
}

// extractIndexName pulls the index name following the given keyword, trimming
// a parenthesized condition suffix.
func extractIndexName(detail, keyword string) (string, bool) {
	upper := strings.ToUpper(detail)
	kwUpper := strings.ToUpper(keyword)

	i := strings.Index(upper, kwUpper)
	if i < 0 {
		return "", false
	}
	remaining := strings.TrimSpace(detail[i+len(kwUpper):])

	name, _, _ := strings.Cut(remaining, " ")
	name, _, _ = strings.Cut(name, "(")
	if name == "" {
		return "", false
	}
	return name, true
}

// extractIndexCondition returns the text between the first opening and the
// last closing parenthesis.
func extractIndexCondition(detail string) (string, bool) {
	start := strings.Index(detail, "(")
	end := strings.LastIndex(detail, ")")
	if start < 0 || end < 0 || start >= end {
		return "", false
	}
	return detail[start+1 : end], true
}

// OperationNodeType maps a free-text EXPLAIN QUERY PLAN operation string to
// the node type it represents, without building a node. Useful for callers
// that only classify rows.
func OperationNodeType(operation string) plan.NodeType {
	upper := strings.ToUpper(operation)

	switch {
	case strings.HasPrefix(upper, "SCAN"):
		switch {
		case strings.Contains(upper, "COVERING INDEX"):
			return plan.IndexOnlyScan
		case strings.Contains(upper, "INDEX"):
			return plan.IndexScan
		case strings.Contains(upper, "CONSTANT ROW"):
			return plan.ValuesScan
		case strings.Contains(upper, "SUBQUERY"):
			return plan.SubqueryScan
		default:
			return plan.SeqScan
		}
	case strings.HasPrefix(upper, "SEARCH"):
		if strings.Contains(upper, "COVERING INDEX") || strings.Contains(upper, "AUTO-INDEX") {
			return plan.IndexOnlyScan
		}
		return plan.IndexScan
	case strings.Contains(upper, "ORDER BY"), strings.HasPrefix(upper, "USING TEMP B-TREE"):
		return plan.Sort
	case strings.Contains(upper, "DISTINCT"):
		return plan.Unique
	case strings.Contains(upper, "GROUP BY"):
		return plan.HashAggregate
	case strings.HasPrefix(upper, "UNION"):
		if strings.Contains(upper, "ALL") {
			return plan.Append
		}
		return plan.SetOp
	case strings.HasPrefix(upper, "COMPOUND"):
		return plan.SetOp
	case strings.HasPrefix(upper, "CO-ROUTINE"):
		return plan.CteScan
	case strings.Contains(upper, "SUBQUERY"):
		return plan.SubqueryScan
	case strings.HasPrefix(upper, "MATERIALIZE"):
		return plan.Materialize
	case strings.HasPrefix(upper, "MERGE"):
		return plan.MergeAppend
	case strings.Contains(upper, "LEFT"), strings.Contains(upper, "RIGHT"), strings.Contains(upper, "JOIN"):
		return plan.NestedLoop
	case strings.Contains(upper, "BLOOM FILTER"):
		return plan.Hash
	default:
		return plan.Unknown
	}
}
