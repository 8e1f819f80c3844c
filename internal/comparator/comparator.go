// Package comparator diffs two analyzed plans of the same query, typically
// before and after an optimization attempt.
package comparator

import (
	"fmt"
	"math"

	"github.com/samurmaykrr/planscope/internal/analyzer"
	"github.com/samurmaykrr/planscope/internal/plan"
)

// Comparator diffs analyses. Threshold is the percent change below which a
// numeric movement counts as noise.
type Comparator struct {
	Threshold float64
}

// New returns a comparator with the default 5% significance threshold.
func New() *Comparator {
	return &Comparator{Threshold: 5.0}
}

// Compare diffs two analyses of the same query.
func (c *Comparator) Compare(old, new *analyzer.QueryAnalysis) ComparisonResult {
	rootDelta := c.diffNodes(old.Plan.Root, new.Plan.Root)

	summary := Summary{
		OldTotalCost: floatOrZero(old.Plan.TotalCost),
		NewTotalCost: floatOrZero(new.Plan.TotalCost),

		OldExecutionTime: floatOrZero(old.Plan.ExecutionTimeMS),
		NewExecutionTime: floatOrZero(new.Plan.ExecutionTimeMS),

		OldScore: float64(old.PerformanceScore),
		NewScore: float64(new.PerformanceScore),
	}
	summary.CostDelta = summary.NewTotalCost - summary.OldTotalCost
	summary.CostPct = pctChange(summary.OldTotalCost, summary.NewTotalCost)
	summary.CostDir = c.direction(summary.OldTotalCost, summary.NewTotalCost, true)

	summary.TimeDelta = summary.NewExecutionTime - summary.OldExecutionTime
	summary.TimePct = pctChange(summary.OldExecutionTime, summary.NewExecutionTime)
	summary.TimeDir = c.direction(summary.OldExecutionTime, summary.NewExecutionTime, true)

	summary.ScoreDir = c.direction(summary.OldScore, summary.NewScore, false)

	summary.Introduced = diffSuggestions(new.Suggestions, old.Suggestions)
	summary.Resolved = diffSuggestions(old.Suggestions, new.Suggestions)

	countChanges(&rootDelta, &summary)
	summary.Verdict = verdict(&summary)

	return ComparisonResult{
		Deltas:  []NodeDelta{rootDelta},
		Summary: summary,
	}
}

func (c *Comparator) diffNodes(old, new *plan.PlanNode) NodeDelta {
	delta := NodeDelta{
		Relation: coalesce(old.Relation, new.Relation),
	}

	if old.NodeType != new.NodeType {
		delta.ChangeType = TypeChanged
		delta.OldNodeType = string(old.NodeType)
		delta.NewNodeType = string(new.NodeType)
		delta.NodeType = string(new.NodeType)
	} else {
		delta.ChangeType = Modified
		delta.NodeType = string(old.NodeType)
	}

	delta.OldCost = nodeCost(old)
	delta.NewCost = nodeCost(new)
	delta.CostDelta = delta.NewCost - delta.OldCost
	delta.CostPct = pctChange(delta.OldCost, delta.NewCost)
	delta.CostDir = c.direction(delta.OldCost, delta.NewCost, true)

	delta.OldTime = nodeTime(old)
	delta.NewTime = nodeTime(new)
	delta.TimeDelta = delta.NewTime - delta.OldTime
	delta.TimeDir = c.direction(delta.OldTime, delta.NewTime, true)

	delta.OldRows = intOrZero(old.Rows)
	delta.NewRows = intOrZero(new.Rows)
	delta.RowsDelta = delta.NewRows - delta.OldRows

	delta.OldIndexName = old.IndexName
	delta.NewIndexName = new.IndexName

	if delta.ChangeType == Modified && !c.isSignificant(delta) {
		delta.ChangeType = NoChange
	}

	delta.Children = c.diffChildren(old.Children, new.Children)

	return delta
}

func (c *Comparator) diffChildren(oldKids, newKids []*plan.PlanNode) []NodeDelta {
	var deltas []NodeDelta

	for i := range max(len(oldKids), len(newKids)) {
		if i >= len(oldKids) {
			deltas = append(deltas, markSubtree(newKids[i], Added))
			continue
		}
		if i >= len(newKids) {
			deltas = append(deltas, markSubtree(oldKids[i], Removed))
			continue
		}
		deltas = append(deltas, c.diffNodes(oldKids[i], newKids[i]))
	}

	return deltas
}

func markSubtree(node *plan.PlanNode, change ChangeType) NodeDelta {
	delta := NodeDelta{
		ChangeType: change,
		NodeType:   string(node.NodeType),
		Relation:   node.Relation,
	}
	if change == Added {
		delta.NewCost = nodeCost(node)
		delta.NewTime = nodeTime(node)
		delta.NewRows = intOrZero(node.Rows)
	} else {
		delta.OldCost = nodeCost(node)
		delta.OldTime = nodeTime(node)
		delta.OldRows = intOrZero(node.Rows)
	}

	for _, child := range node.Children {
		delta.Children = append(delta.Children, markSubtree(child, change))
	}
	return delta
}

func (c *Comparator) isSignificant(d NodeDelta) bool {
	if math.Abs(d.CostPct) > c.Threshold {
		return true
	}
	if d.OldTime != 0 || d.NewTime != 0 {
		if math.Abs(pctChange(d.OldTime, d.NewTime)) > c.Threshold {
			return true
		}
	}
	if d.OldIndexName != d.NewIndexName {
		return true
	}
	return false
}

func (c *Comparator) direction(old, new float64, lowerIsBetter bool) Direction {
	if math.Abs(pctChange(old, new)) < c.Threshold {
		return Unchanged
	}
	if lowerIsBetter == (new < old) {
		return Improved
	}
	return Regressed
}

func countChanges(delta *NodeDelta, summary *Summary) {
	switch delta.ChangeType {
	case Added:
		summary.NodesAdded++
	case Removed:
		summary.NodesRemoved++
	case Modified:
		summary.NodesModified++
	case TypeChanged:
		summary.NodesTypeChanged++
	}

	for i := range delta.Children {
		countChanges(&delta.Children[i], summary)
	}
}

// diffSuggestions returns the suggestions in a that have no counterpart of
// the same type and table in b.
func diffSuggestions(a, b []analyzer.Suggestion) []analyzer.Suggestion {
	var out []analyzer.Suggestion
	for _, s := range a {
		matched := false
		for _, other := range b {
			if s.Type == other.Type && s.Table == other.Table {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, s)
		}
	}
	return out
}

func verdict(s *Summary) string {
	switch {
	case s.ScoreDir == Improved || (s.CostDir == Improved && s.ScoreDir != Regressed):
		return fmt.Sprintf("Plan improved: score %d -> %d, cost %s",
			int(s.OldScore), int(s.NewScore), s.CostDir)
	case s.ScoreDir == Regressed || s.CostDir == Regressed:
		return fmt.Sprintf("Plan regressed: score %d -> %d, cost %s",
			int(s.OldScore), int(s.NewScore), s.CostDir)
	default:
		return "Plans are equivalent within the significance threshold"
	}
}

func nodeCost(n *plan.PlanNode) float64 {
	if n.Cost == nil {
		return 0
	}
	return n.Cost.Total
}

func nodeTime(n *plan.PlanNode) float64 {
	if n.ActualTime == nil {
		return 0
	}
	return n.ActualTime.Total
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func intOrZero(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

func pctChange(old, new float64) float64 {
	if old == 0 {
		if new == 0 {
			return 0
		}
		return 100
	}
	return ((new - old) / old) * 100
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
