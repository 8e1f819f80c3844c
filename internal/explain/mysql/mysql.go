// Package mysql parses MySQL EXPLAIN output into the canonical plan model.
// Both EXPLAIN FORMAT=JSON (query_block trees) and the traditional tabular
// output are supported; the structure differs enough from PostgreSQL that
// access types, not node types, drive the mapping.
package mysql

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

var (
	// ErrEmptyOutput is returned when the input contains no plan rows at all.
	ErrEmptyOutput = errors.New("empty EXPLAIN output")
	// ErrMissingQueryBlock is returned when JSON input carries no
	// "query_block" object.
	ErrMissingQueryBlock = errors.New("missing query_block in EXPLAIN output")
)

// StructureError reports EXPLAIN output whose overall shape cannot be parsed.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "invalid plan structure: " + e.Reason
}

// Parse parses MySQL EXPLAIN output, auto-detecting JSON versus tabular.
func Parse(output string) (*plan.QueryPlan, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, ErrEmptyOutput
	}

	if strings.HasPrefix(trimmed, "{") {
		return ParseJSON(trimmed)
	}
	return ParseTabular(trimmed)
}

// ParseJSON parses EXPLAIN FORMAT=JSON output. The root object wraps
// everything in "query_block"; joins appear as a flat "nested_loop" array
// that is folded into a left-deep join tree.
func ParseJSON(input string) (*plan.QueryPlan, error) {
	var value map[string]any
	if err := json.Unmarshal([]byte(input), &value); err != nil {
		return nil, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}

	block, ok := value["query_block"].(map[string]any)
	if !ok {
		return nil, ErrMissingQueryBlock
	}

	root, err := parseQueryBlock(block)
	if err != nil {
		return nil, err
	}
	p := plan.New(root)

	// MySQL reports costs as strings.
	if costInfo, ok := block["cost_info"].(map[string]any); ok {
		if cost, ok := costString(costInfo, "query_cost"); ok {
			p.TotalCost = &cost
		}
	}

	return p, nil
}

// parseQueryBlock dispatches on the wrapping operation a query_block carries.
// Ordering, grouping and distinct each wrap the rest of the block.
func parseQueryBlock(block map[string]any) (*plan.PlanNode, error) {
	if ordering, ok := block["ordering_operation"].(map[string]any); ok {
		return parseOrderingOperation(ordering)
	}
	if grouping, ok := block["grouping_operation"].(map[string]any); ok {
		return parseGroupingOperation(grouping)
	}
	if distinct, ok := block["duplicates_removal"].(map[string]any); ok {
		return parseDuplicatesRemoval(distinct)
	}
	if nestedLoop, ok := block["nested_loop"]; ok {
		return parseNestedLoop(nestedLoop)
	}
	if table, ok := block["table"].(map[string]any); ok {
		return parseTableAccess(table)
	}
	if union, ok := block["union_result"].(map[string]any); ok {
		return parseUnionResult(union)
	}
	return plan.NewNode(plan.Result), nil
}

func parseOrderingOperation(ordering map[string]any) (*plan.PlanNode, error) {
	node := plan.NewNode(plan.Sort)

	if filesort, ok := ordering["using_filesort"].(bool); ok && filesort {
		node.SortMethod = "filesort"
	}
	if tmp, ok := ordering["using_temporary_table"].(bool); ok && tmp {
		node.PutExtra("using_temporary_table", true)
	}

	if err := attachBlockContent(node, ordering); err != nil {
		return nil, err
	}
	return node, nil
}

func parseGroupingOperation(grouping map[string]any) (*plan.PlanNode, error) {
	node := plan.NewNode(plan.Aggregate)

	if cols, ok := grouping["group_by_columns"].([]any); ok {
		for _, c := range cols {
			if s, ok := c.(string); ok {
				node.GroupKeys = append(node.GroupKeys, s)
			}
		}
	}
	// A temporary table means hash-based grouping.
	if tmp, ok := grouping["using_temporary_table"].(bool); ok && tmp {
		node.NodeType = plan.HashAggregate
	}
	if filesort, ok := grouping["using_filesort"].(bool); ok && filesort {
		node.PutExtra("using_filesort", true)
	}

	if err := attachBlockContent(node, grouping); err != nil {
		return nil, err
	}
	return node, nil
}

func parseDuplicatesRemoval(distinct map[string]any) (*plan.PlanNode, error) {
	node := plan.NewNode(plan.Unique)
	if err := attachBlockContent(node, distinct); err != nil {
		return nil, err
	}
	return node, nil
}

// attachBlockContent parses the content nested inside a wrapping operation
// and appends it as the wrapper's child.
func attachBlockContent(node *plan.PlanNode, block map[string]any) error {
	var child *plan.PlanNode
	var err error

	if nestedLoop, ok := block["nested_loop"]; ok {
		child, err = parseNestedLoop(nestedLoop)
	} else if table, ok := block["table"].(map[string]any); ok {
		child, err = parseTableAccess(table)
	} else if grouping, ok := block["grouping_operation"].(map[string]any); ok {
		child, err = parseGroupingOperation(grouping)
	} else if distinct, ok := block["duplicates_removal"].(map[string]any); ok {
		child, err = parseDuplicatesRemoval(distinct)
	} else {
		return nil
	}

	if err != nil {
		return err
	}
	node.Children = append(node.Children, child)
	return nil
}

// parseNestedLoop folds the flat nested_loop array into a left-deep tree of
// inner nested-loop joins.
func parseNestedLoop(value any) (*plan.PlanNode, error) {
	tables, ok := value.([]any)
	if !ok {
		return nil, &StructureError{Reason: "nested_loop is not an array"}
	}
	if len(tables) == 0 {
		return nil, &StructureError{Reason: "empty nested_loop"}
	}

	var children []*plan.PlanNode
	for _, entry := range tables {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		table, ok := obj["table"].(map[string]any)
		if !ok {
			continue
		}
		child, err := parseTableAccess(table)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, &StructureError{Reason: "nested_loop carries no tables"}
	}
	if len(children) == 1 {
		return children[0], nil
	}

	current := children[0]
	for _, child := range children[1:] {
		join := plan.NewNode(plan.NestedLoop)
		join.JoinType = plan.JoinInner
		join.Children = []*plan.PlanNode{current, child}
		current = join
	}
	return current, nil
}

func parseTableAccess(table map[string]any) (*plan.PlanNode, error) {
	accessType := "ALL"
	if s, ok := table["access_type"].(string); ok {
		accessType = s
	}

	node := plan.NewNode(NodeTypeFromAccessType(accessType))

	if name, ok := table["table_name"].(string); ok {
		node.Relation = name
	}

	if costInfo, ok := table["cost_info"].(map[string]any); ok {
		if readCost, ok := costString(costInfo, "read_cost"); ok {
			evalCost, _ := costString(costInfo, "eval_cost")
			node.Cost = &plan.NodeCost{Startup: 0, Total: readCost + evalCost}
		}
	}

	if rows, ok := jsonInt(table, "rows_examined_per_scan"); ok {
		node.Rows = &rows
	}
	if produced, ok := jsonInt(table, "rows_produced_per_join"); ok {
		node.ActualRows = &produced
	}
	if filtered, ok := table["filtered"].(string); ok {
		node.PutExtra("filtered", filtered)
	}

	if key, ok := table["key"].(string); ok && key != "null" {
		node.IndexName = key
	}
	if keys, ok := table["possible_keys"].([]any); ok && len(keys) > 0 {
		node.PutExtra("possible_keys", keys)
	}
	if keyLen, ok := table["key_length"].(string); ok {
		node.PutExtra("key_length", keyLen)
	}
	if refs, ok := table["ref"].([]any); ok && len(refs) > 0 {
		node.PutExtra("ref", refs)
	}

	if cond, ok := table["attached_condition"].(string); ok {
		node.Filter = cond
	}

	// A covering index read upgrades an index scan to index-only.
	if usingIndex, ok := table["using_index"].(bool); ok && usingIndex {
		if node.NodeType == plan.IndexScan {
			node.NodeType = plan.IndexOnlyScan
		}
		node.PutExtra("using_index", true)
	}
	if _, ok := table["using_index_for_group_by"]; ok {
		node.PutExtra("using_index_for_group_by", true)
	}

	if subqueries, ok := table["subqueries"].([]any); ok {
		for _, sub := range subqueries {
			obj, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			block, ok := obj["query_block"].(map[string]any)
			if !ok {
				continue
			}
			child, err := parseQueryBlock(block)
			if err != nil {
				continue
			}
			scan := plan.NewNode(plan.SubqueryScan)
			scan.Children = append(scan.Children, child)
			node.Children = append(node.Children, scan)
		}
	}

	return node, nil
}

func parseUnionResult(union map[string]any) (*plan.PlanNode, error) {
	node := plan.NewNode(plan.Append)

	if name, ok := union["table_name"].(string); ok {
		node.Description = "Union result: " + name
	}
	if tmp, ok := union["using_temporary_table"].(bool); ok && tmp {
		node.PutExtra("using_temporary_table", true)
	}

	if specs, ok := union["query_specifications"].([]any); ok {
		for _, spec := range specs {
			obj, ok := spec.(map[string]any)
			if !ok {
				continue
			}
			block, ok := obj["query_block"].(map[string]any)
			if !ok {
				continue
			}
			child, err := parseQueryBlock(block)
			if err != nil {
				continue
			}
			node.Children = append(node.Children, child)
		}
	}

	return node, nil
}

// NodeTypeFromAccessType maps a MySQL access type onto the canonical node
// types. Everything index-shaped collapses to IndexScan; only index_merge is
// bitmap-like.
func NodeTypeFromAccessType(accessType string) plan.NodeType {
	switch strings.ToLower(accessType) {
	case "all":
		return plan.SeqScan
	case "index", "range", "ref", "eq_ref", "const", "system", "ref_or_null",
		"fulltext", "unique_subquery", "index_subquery":
		return plan.IndexScan
	case "index_merge":
		return plan.BitmapIndexScan
	default:
		return plan.Unknown
	}
}

// costString reads a cost value MySQL encodes as a decimal string.
func costString(obj map[string]any, key string) (float64, bool) {
	s, ok := obj[key].(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func jsonInt(obj map[string]any, key string) (int64, bool) {
	f, ok := obj[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
