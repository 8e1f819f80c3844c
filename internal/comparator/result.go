package comparator

import "github.com/samurmaykrr/planscope/internal/analyzer"

type Direction int

const (
	Unchanged Direction = 0
	Improved  Direction = 1
	Regressed Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

type ChangeType int

const (
	NoChange    ChangeType = 0
	Modified    ChangeType = 1
	Added       ChangeType = 2
	Removed     ChangeType = 3
	TypeChanged ChangeType = 4
)

func (c ChangeType) String() string {
	switch c {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case TypeChanged:
		return "type_changed"
	default:
		return "no_change"
	}
}

// NodeDelta describes how one position in the plan tree changed between two
// runs. Nodes are matched positionally.
type NodeDelta struct {
	NodeType   string
	Relation   string
	ChangeType ChangeType

	OldNodeType string
	NewNodeType string

	OldCost   float64
	NewCost   float64
	CostDelta float64
	CostPct   float64
	CostDir   Direction

	OldTime   float64
	NewTime   float64
	TimeDelta float64
	TimeDir   Direction

	OldRows   int64
	NewRows   int64
	RowsDelta int64

	OldIndexName string
	NewIndexName string

	Children []NodeDelta
}

// ComparisonResult is the full diff of two analyzed plans: the structural
// node deltas plus the analysis-level summary.
type ComparisonResult struct {
	Deltas  []NodeDelta
	Summary Summary
}

// Summary aggregates the comparison: cost, timing and score movement, node
// change counts, and which suggestions appeared or disappeared.
type Summary struct {
	OldTotalCost float64
	NewTotalCost float64
	CostDelta    float64
	CostPct      float64
	CostDir      Direction

	OldExecutionTime float64
	NewExecutionTime float64
	TimeDelta        float64
	TimePct          float64
	TimeDir          Direction

	OldScore float64
	NewScore float64
	ScoreDir Direction

	NodesAdded       int
	NodesRemoved     int
	NodesModified    int
	NodesTypeChanged int

	// Suggestions present only in the new analysis (regressions) and only
	// in the old one (fixes).
	Introduced []analyzer.Suggestion
	Resolved   []analyzer.Suggestion

	Verdict string
}
