package mysql

import (
	"strconv"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

// tabularRow is one row of traditional EXPLAIN output:
// id | select_type | table | [partitions] | type | possible_keys | key |
// key_len | ref | rows | filtered | Extra
type tabularRow struct {
	id           int
	selectType   string
	table        string
	accessType   string
	possibleKeys string
	key          string
	keyLen       string
	refCols      string
	rows         *int64
	filtered     *float64
	extra        string
}

// ParseTabular parses the traditional tab- or pipe-separated EXPLAIN output.
// Rows with the same id belong to one query block; multiple rows fold into a
// left-deep nested-loop tree the way MySQL executes them.
func ParseTabular(text string) (*plan.QueryPlan, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOutput
	}

	// Drop a header line if present.
	if strings.Contains(lines[0], "select_type") ||
		strings.Contains(strings.ToLower(lines[0]), "id\t") {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOutput
	}

	var rows []tabularRow
	for _, line := range lines {
		if row, ok := parseTabularRow(line); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, &StructureError{Reason: "no valid rows found"}
	}

	root := buildFromRows(rows)
	return plan.New(root), nil
}

// parseTabularRow splits one row on tabs, falling back to pipes for clients
// that render a table border.
func parseTabularRow(line string) (tabularRow, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		parts = nil
		for _, p := range strings.Split(line, "|") {
			p = strings.TrimSpace(p)
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	return parseTabularParts(parts)
}

func parseTabularParts(parts []string) (tabularRow, bool) {
	var row tabularRow

	// Drop empty fields from pipe-bordered output.
	fields := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			fields = append(fields, p)
		}
	}
	if len(fields) < 4 {
		return row, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return row, false
	}
	row.id = id
	row.selectType = strings.TrimSpace(fields[1])
	row.table = strings.TrimSpace(fields[2])

	// Position 3 is either the access type (11-column format) or the
	// partitions column (12-column format); probing it against the known
	// access types disambiguates.
	hasPartitions := len(fields) >= 5 && !isAccessType(fields[3]) && isAccessType(fields[4])

	idx := func(n int) string {
		if hasPartitions {
			n++
		}
		if n < len(fields) {
			return strings.TrimSpace(fields[n])
		}
		return ""
	}

	row.accessType = idx(3)
	row.possibleKeys = idx(4)
	if key := idx(5); key != "NULL" {
		row.key = key
	}
	row.keyLen = idx(6)
	row.refCols = idx(7)
	if n, err := strconv.ParseInt(idx(8), 10, 64); err == nil {
		row.rows = &n
	}
	if f, err := strconv.ParseFloat(idx(9), 64); err == nil {
		row.filtered = &f
	}
	row.extra = idx(10)

	return row, true
}

func isAccessType(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "index", "range", "ref", "eq_ref", "const", "system", "null", "fulltext":
		return true
	}
	return false
}

func buildFromRows(rows []tabularRow) *plan.PlanNode {
	var nodes []*plan.PlanNode

	for _, row := range rows {
		node := plan.NewNode(NodeTypeFromAccessType(row.accessType))
		node.Relation = row.table
		if row.key != "" && row.key != "NULL" {
			node.IndexName = row.key
		}
		if row.rows != nil {
			node.Rows = row.rows
		}
		if row.filtered != nil {
			node.PutExtra("filtered", *row.filtered)
		}
		if row.extra != "" {
			parseExtraField(node, row.extra)
		}
		if row.possibleKeys != "" && row.possibleKeys != "NULL" {
			node.PutExtra("possible_keys", row.possibleKeys)
		}
		if row.keyLen != "" && row.keyLen != "NULL" {
			node.PutExtra("key_length", row.keyLen)
		}
		if row.refCols != "" && row.refCols != "NULL" {
			node.PutExtra("ref", row.refCols)
		}
		node.PutExtra("select_type", row.selectType)
		node.PutExtra("select_id", row.id)

		nodes = append(nodes, node)
	}

	if len(nodes) == 1 {
		return nodes[0]
	}
	current := nodes[0]
	for _, node := range nodes[1:] {
		join := plan.NewNode(plan.NestedLoop)
		join.JoinType = plan.JoinInner
		join.Children = []*plan.PlanNode{current, node}
		current = join
	}
	return current
}

// extraMarkers maps phrases in the Extra column onto the flags they set.
var extraMarkers = map[string]string{
	"using index":                   "using_index",
	"using where":                   "using_where",
	"using filesort":                "using_filesort",
	"using temporary":               "using_temporary",
	"using join buffer":             "using_join_buffer",
	"range checked for each record": "range_checked_for_each_record",
	"using index condition":         "using_index_condition",
	"using mrr":                     "using_mrr",
	"using index for group-by":      "using_index_for_group_by",
}

// parseExtraField interprets the free-text Extra column. "Using index" means
// a covering read, which upgrades an index scan to index-only.
func parseExtraField(node *plan.PlanNode, extra string) {
	lower := strings.ToLower(extra)

	for marker, flag := range extraMarkers {
		if strings.Contains(lower, marker) {
			node.PutExtra(flag, true)
		}
	}
	if strings.Contains(lower, "using index") && node.NodeType == plan.IndexScan {
		node.NodeType = plan.IndexOnlyScan
	}

	if extra != "" && extra != "NULL" {
		node.Description = extra
	}
}
