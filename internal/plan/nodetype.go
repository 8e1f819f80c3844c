package plan

import "strings"

// NodeType identifies the physical operation a plan node performs. The set is
// closed; source strings that do not map to a known operation become Unknown.
type NodeType string

const (
	// Scan operations
	SeqScan         NodeType = "seq_scan"
	IndexScan       NodeType = "index_scan"
	IndexOnlyScan   NodeType = "index_only_scan"
	BitmapIndexScan NodeType = "bitmap_index_scan"
	BitmapHeapScan  NodeType = "bitmap_heap_scan"
	TidScan         NodeType = "tid_scan"
	SubqueryScan    NodeType = "subquery_scan"
	FunctionScan    NodeType = "function_scan"
	ValuesScan      NodeType = "values_scan"
	CteScan         NodeType = "cte_scan"
	WorkTableScan   NodeType = "work_table_scan"
	ForeignScan     NodeType = "foreign_scan"
	CustomScan      NodeType = "custom_scan"

	// Join operations
	NestedLoop NodeType = "nested_loop"
	HashJoin   NodeType = "hash_join"
	MergeJoin  NodeType = "merge_join"

	// Aggregation operations
	Aggregate      NodeType = "aggregate"
	GroupAggregate NodeType = "group_aggregate"
	HashAggregate  NodeType = "hash_aggregate"
	WindowAgg      NodeType = "window_agg"

	// Sort operations
	Sort            NodeType = "sort"
	IncrementalSort NodeType = "incremental_sort"

	// Set operations
	SetOp          NodeType = "set_op"
	Append         NodeType = "append"
	MergeAppend    NodeType = "merge_append"
	RecursiveUnion NodeType = "recursive_union"

	Limit NodeType = "limit"

	Materialize NodeType = "materialize"
	Memoize     NodeType = "memoize"

	Hash NodeType = "hash"

	Unique NodeType = "unique"

	BitmapAnd NodeType = "bitmap_and"
	BitmapOr  NodeType = "bitmap_or"

	SubPlan NodeType = "sub_plan"

	// Modification operations
	ModifyTable NodeType = "modify_table"
	Insert      NodeType = "insert"
	Update      NodeType = "update"
	Delete      NodeType = "delete"

	Result NodeType = "result"

	// Parallel query
	Gather      NodeType = "gather"
	GatherMerge NodeType = "gather_merge"

	LockRows NodeType = "lock_rows"

	ProjectSet NodeType = "project_set"

	CTE NodeType = "cte"

	Unknown NodeType = "unknown"
)

// postgresNodeTypes maps PostgreSQL EXPLAIN spellings onto NodeType. Several
// operations appear under two spellings depending on the server version and
// output format, so both are listed.
var postgresNodeTypes = map[string]NodeType{
	"Seq Scan":          SeqScan,
	"Index Scan":        IndexScan,
	"Index Only Scan":   IndexOnlyScan,
	"Bitmap Index Scan": BitmapIndexScan,
	"Bitmap Heap Scan":  BitmapHeapScan,
	"Tid Scan":          TidScan,
	"TID Scan":          TidScan,
	"Subquery Scan":     SubqueryScan,
	"Function Scan":     FunctionScan,
	"Values Scan":       ValuesScan,
	"CTE Scan":          CteScan,
	"WorkTable Scan":    WorkTableScan,
	"Foreign Scan":      ForeignScan,
	"Custom Scan":       CustomScan,
	"Nested Loop":       NestedLoop,
	"Hash Join":         HashJoin,
	"Merge Join":        MergeJoin,
	"Aggregate":         Aggregate,
	"GroupAggregate":    GroupAggregate,
	"Group Aggregate":   GroupAggregate,
	"HashAggregate":     HashAggregate,
	"Hash Aggregate":    HashAggregate,
	"WindowAgg":         WindowAgg,
	"Window Aggregate":  WindowAgg,
	"Sort":              Sort,
	"Incremental Sort":  IncrementalSort,
	"SetOp":             SetOp,
	"SetOperation":      SetOp,
	"Append":            Append,
	"Merge Append":      MergeAppend,
	"MergeAppend":       MergeAppend,
	"Recursive Union":   RecursiveUnion,
	"Limit":             Limit,
	"Materialize":       Materialize,
	"Memoize":           Memoize,
	"Hash":              Hash,
	"Unique":            Unique,
	"BitmapAnd":         BitmapAnd,
	"Bitmap And":        BitmapAnd,
	"BitmapOr":          BitmapOr,
	"Bitmap Or":         BitmapOr,
	"SubPlan":           SubPlan,
	"ModifyTable":       ModifyTable,
	"Modify Table":      ModifyTable,
	"Insert":            Insert,
	"Update":            Update,
	"Delete":            Delete,
	"Result":            Result,
	"Gather":            Gather,
	"Gather Merge":      GatherMerge,
	"LockRows":          LockRows,
	"Lock Rows":         LockRows,
	"ProjectSet":        ProjectSet,
	"Project Set":       ProjectSet,
	"CTE":               CTE,
}

// NodeTypeFromPostgres maps a PostgreSQL node-type string to a NodeType.
// Unrecognized strings map to Unknown, never an error.
func NodeTypeFromPostgres(s string) NodeType {
	if t, ok := postgresNodeTypes[s]; ok {
		return t
	}
	return Unknown
}

var nodeTypeDescriptions = map[NodeType]string{
	SeqScan:         "Sequential scan (full table scan)",
	IndexScan:       "Index scan (uses index to find rows, then reads table)",
	IndexOnlyScan:   "Index-only scan (reads data directly from index)",
	BitmapIndexScan: "Bitmap index scan (builds bitmap of matching rows)",
	BitmapHeapScan:  "Bitmap heap scan (reads table using bitmap)",
	TidScan:         "TID scan (direct row access by tuple ID)",
	SubqueryScan:    "Subquery scan (scans subquery results)",
	FunctionScan:    "Function scan (scans function return values)",
	ValuesScan:      "Values scan (scans VALUES clause)",
	CteScan:         "CTE scan (scans common table expression)",
	WorkTableScan:   "Work table scan (recursive CTE work table)",
	ForeignScan:     "Foreign scan (scans foreign table)",
	CustomScan:      "Custom scan (extension-provided scan)",
	NestedLoop:      "Nested loop join",
	HashJoin:        "Hash join",
	MergeJoin:       "Merge join (sorted inputs)",
	Aggregate:       "Aggregate",
	GroupAggregate:  "Group aggregate (sorted groups)",
	HashAggregate:   "Hash aggregate (hash-based grouping)",
	WindowAgg:       "Window function aggregate",
	Sort:            "Sort",
	IncrementalSort: "Incremental sort (partially presorted)",
	SetOp:           "Set operation (UNION/INTERSECT/EXCEPT)",
	Append:          "Append (combines multiple inputs)",
	MergeAppend:     "Merge append (combines sorted inputs)",
	RecursiveUnion:  "Recursive union (recursive CTE)",
	Limit:           "Limit (restricts output rows)",
	Materialize:     "Materialize (stores results in memory)",
	Memoize:         "Memoize (caches repeated lookups)",
	Hash:            "Hash (builds hash table for join)",
	Unique:          "Unique (removes duplicates)",
	BitmapAnd:       "Bitmap AND (combines bitmaps)",
	BitmapOr:        "Bitmap OR (combines bitmaps)",
	SubPlan:         "SubPlan (subquery execution)",
	ModifyTable:     "Modify table (INSERT/UPDATE/DELETE)",
	Insert:          "Insert rows",
	Update:          "Update rows",
	Delete:          "Delete rows",
	Result:          "Result (computes expression)",
	Gather:          "Gather (collects parallel worker results)",
	GatherMerge:     "Gather merge (merges sorted parallel results)",
	LockRows:        "Lock rows (FOR UPDATE/SHARE)",
	ProjectSet:      "Project set (generates rows from set-returning functions)",
	CTE:             "Common Table Expression",
	Unknown:         "Unknown operation",
}

// Description returns a human-readable description of the operation.
func (t NodeType) Description() string {
	if d, ok := nodeTypeDescriptions[t]; ok {
		return d
	}
	return nodeTypeDescriptions[Unknown]
}

// PotentiallySlow reports whether this operation typically indicates a
// performance concern.
func (t NodeType) PotentiallySlow() bool {
	switch t {
	case SeqScan, NestedLoop, Sort:
		return true
	}
	return false
}

// JoinType identifies the logical join kind of a join node. The zero value
// means the source did not report one.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
	JoinSemi  JoinType = "semi"
	JoinAnti  JoinType = "anti"
	JoinCross JoinType = "cross"
)

// ParseJoinType maps a source join-type string to a JoinType. Matching is
// case-insensitive and accepts the "outer" synonyms.
func ParseJoinType(s string) (JoinType, bool) {
	switch strings.ToLower(s) {
	case "inner":
		return JoinInner, true
	case "left", "left outer":
		return JoinLeft, true
	case "right", "right outer":
		return JoinRight, true
	case "full", "full outer":
		return JoinFull, true
	case "semi":
		return JoinSemi, true
	case "anti":
		return JoinAnti, true
	case "cross":
		return JoinCross, true
	}
	return "", false
}
