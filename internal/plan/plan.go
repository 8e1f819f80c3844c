// Package plan defines the canonical query-plan tree that every dialect
// parser produces and the advisory engine consumes. A QueryPlan is built once
// by a parser and only read afterwards.
package plan

import "iter"

// QueryPlan is the root of a parsed execution plan. TotalCost and TotalRows
// are cached from the root node at construction and never mutated afterwards.
type QueryPlan struct {
	Root            *PlanNode `json:"root"`
	TotalCost       *float64  `json:"total_cost,omitempty"`
	TotalRows       *int64    `json:"total_rows,omitempty"`
	PlanningTimeMS  *float64  `json:"planning_time_ms,omitempty"`
	ExecutionTimeMS *float64  `json:"execution_time_ms,omitempty"`
}

// New creates a query plan rooted at the given node, deriving the cached
// totals from it.
func New(root *PlanNode) *QueryPlan {
	p := &QueryPlan{Root: root}
	if root.Cost != nil {
		total := root.Cost.Total
		p.TotalCost = &total
	}
	if root.Rows != nil {
		rows := *root.Rows
		p.TotalRows = &rows
	}
	return p
}

// WithPlanningTime sets the planning time in milliseconds.
func (p *QueryPlan) WithPlanningTime(ms float64) *QueryPlan {
	p.PlanningTimeMS = &ms
	return p
}

// WithExecutionTime sets the execution time in milliseconds.
func (p *QueryPlan) WithExecutionTime(ms float64) *QueryPlan {
	p.ExecutionTimeMS = &ms
	return p
}

// Nodes returns a depth-first, pre-order sequence over all nodes in the plan.
// The traversal uses an explicit stack rather than recursion so arbitrarily
// deep plans cannot overflow; children are pushed in reverse so popping
// yields them in document order.
func (p *QueryPlan) Nodes() iter.Seq[*PlanNode] {
	return func(yield func(*PlanNode) bool) {
		stack := []*PlanNode{p.Root}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(node) {
				return
			}
			for i := len(node.Children) - 1; i >= 0; i-- {
				stack = append(stack, node.Children[i])
			}
		}
	}
}

// FindNodesByType returns all nodes matching the given node type, in
// traversal order.
func (p *QueryPlan) FindNodesByType(t NodeType) []*PlanNode {
	var found []*PlanNode
	for n := range p.Nodes() {
		if n.NodeType == t {
			found = append(found, n)
		}
	}
	return found
}

// HasSequentialScans reports whether the plan contains any sequential scans.
func (p *QueryPlan) HasSequentialScans() bool {
	for n := range p.Nodes() {
		if n.NodeType == SeqScan {
			return true
		}
	}
	return false
}

// HasHashOperations reports whether the plan contains any hash-based
// operations (hash join, hash build, hash aggregate).
func (p *QueryPlan) HasHashOperations() bool {
	for n := range p.Nodes() {
		switch n.NodeType {
		case HashJoin, Hash, HashAggregate:
			return true
		}
	}
	return false
}

// PlanNode is a single operation in the plan tree. All attributes except
// NodeType are optional; string fields use "" for absent, numeric fields use
// nil. Anything a source reports that the schema does not model explicitly
// lands in Extra.
type PlanNode struct {
	NodeType            NodeType       `json:"node_type"`
	Description         string         `json:"description,omitempty"`
	Relation            string         `json:"relation,omitempty"`
	Schema              string         `json:"schema,omitempty"`
	Alias               string         `json:"alias,omitempty"`
	Cost                *NodeCost      `json:"cost,omitempty"`
	Rows                *int64         `json:"rows,omitempty"`
	Width               *int           `json:"width,omitempty"`
	ActualRows          *int64         `json:"actual_rows,omitempty"`
	ActualTime          *ActualTime    `json:"actual_time_ms,omitempty"`
	Loops               *int64         `json:"loops,omitempty"`
	Filter              string         `json:"filter,omitempty"`
	RowsRemovedByFilter *int64         `json:"rows_removed_by_filter,omitempty"`
	IndexName           string         `json:"index_name,omitempty"`
	IndexCond           string         `json:"index_cond,omitempty"`
	JoinType            JoinType       `json:"join_type,omitempty"`
	JoinCond            string         `json:"join_cond,omitempty"`
	SortKeys            []string       `json:"sort_keys,omitempty"`
	SortMethod          string         `json:"sort_method,omitempty"`
	MemoryUsedKB        *int64         `json:"memory_used_kb,omitempty"`
	HashBuckets         *int64         `json:"hash_buckets,omitempty"`
	HashBatches         *int64         `json:"hash_batches,omitempty"`
	GroupKeys           []string       `json:"group_keys,omitempty"`
	Output              []string       `json:"output,omitempty"`
	Children            []*PlanNode    `json:"children,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// NewNode creates a plan node of the given type with no attributes set.
func NewNode(t NodeType) *PlanNode {
	return &PlanNode{NodeType: t}
}

// WithRelation sets the relation name.
func (n *PlanNode) WithRelation(relation string) *PlanNode {
	n.Relation = relation
	return n
}

// WithCost sets the cost estimate.
func (n *PlanNode) WithCost(startup, total float64) *PlanNode {
	n.Cost = &NodeCost{Startup: startup, Total: total}
	return n
}

// WithRows sets the estimated row count.
func (n *PlanNode) WithRows(rows int64) *PlanNode {
	n.Rows = &rows
	return n
}

// WithWidth sets the estimated row width in bytes.
func (n *PlanNode) WithWidth(width int) *PlanNode {
	n.Width = &width
	return n
}

// WithChild appends a child node.
func (n *PlanNode) WithChild(child *PlanNode) *PlanNode {
	n.Children = append(n.Children, child)
	return n
}

// WithIndex sets the index name.
func (n *PlanNode) WithIndex(indexName string) *PlanNode {
	n.IndexName = indexName
	return n
}

// WithFilter sets the filter condition.
func (n *PlanNode) WithFilter(filter string) *PlanNode {
	n.Filter = filter
	return n
}

// PutExtra records an attribute the canonical schema does not model.
func (n *PlanNode) PutExtra(key string, value any) {
	if n.Extra == nil {
		n.Extra = make(map[string]any)
	}
	n.Extra[key] = value
}

// NodeCount returns the number of nodes in this subtree, including the node
// itself.
func (n *PlanNode) NodeCount() int {
	count := 1
	for _, c := range n.Children {
		count += c.NodeCount()
	}
	return count
}

// Depth returns the maximum depth of this subtree; a leaf has depth 1.
func (n *PlanNode) Depth() int {
	max := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return 1 + max
}

// IsLeaf reports whether the node has no children.
func (n *PlanNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// IsScan reports whether the node reads rows from a relation.
func (n *PlanNode) IsScan() bool {
	switch n.NodeType {
	case SeqScan, IndexScan, IndexOnlyScan, BitmapIndexScan, BitmapHeapScan,
		TidScan, ForeignScan, CteScan:
		return true
	}
	return false
}

// IsJoin reports whether the node combines two inputs.
func (n *PlanNode) IsJoin() bool {
	switch n.NodeType {
	case NestedLoop, HashJoin, MergeJoin:
		return true
	}
	return false
}

// EffectiveCost returns total minus startup cost; ok is false when the node
// carries no cost estimate.
func (n *PlanNode) EffectiveCost() (cost float64, ok bool) {
	if n.Cost == nil {
		return 0, false
	}
	return n.Cost.Total - n.Cost.Startup, true
}

// NodeCost is an engine cost estimate: relative cost to produce the first
// row (startup) and all rows (total).
type NodeCost struct {
	Startup float64 `json:"startup"`
	Total   float64 `json:"total"`
}

// Execution returns the cost spent after the first row, total minus startup.
func (c NodeCost) Execution() float64 {
	return c.Total - c.Startup
}

// ActualTime is realized timing from an analyze-style EXPLAIN, in
// milliseconds.
type ActualTime struct {
	Startup float64 `json:"startup"`
	Total   float64 `json:"total"`
}
