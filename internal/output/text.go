package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/samurmaykrr/planscope/internal/analyzer"
	"github.com/samurmaykrr/planscope/internal/comparator"
	"github.com/samurmaykrr/planscope/internal/plan"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// textWriter latches the first write error so render code can stay linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func RenderAnalysisText(w io.Writer, a *analyzer.QueryAnalysis) error {
	tw := &textWriter{w: w}

	tw.printf("%s%sQuery Analysis%s\n\n", colorBold, colorCyan, colorReset)
	tw.printf("  Performance Score: %s%d/100%s\n", scoreColor(a.PerformanceScore), a.PerformanceScore, colorReset)
	if a.Plan.TotalCost != nil {
		tw.printf("  Total Cost:        %.2f\n", *a.Plan.TotalCost)
	}
	if a.Plan.ExecutionTimeMS != nil {
		tw.printf("  Execution Time:    %.3f ms\n", *a.Plan.ExecutionTimeMS)
	}
	if a.Plan.PlanningTimeMS != nil {
		tw.printf("  Planning Time:     %.3f ms\n", *a.Plan.PlanningTimeMS)
	}
	tw.printf("\n  %s\n\n", a.Summary)

	tw.printf("%s%sPlan%s\n\n", colorBold, colorCyan, colorReset)
	tw.renderPlanNode(a.Plan.Root, 0)
	tw.printf("\n")

	suggestions := a.SortedSuggestions()
	if len(suggestions) == 0 {
		tw.printf("%s%sNo issues found.%s\n", colorBold, colorGreen, colorReset)
		return tw.err
	}

	tw.printf("%s%sSuggestions (%d)%s\n\n", colorBold, colorCyan, len(suggestions), colorReset)

	for i, s := range suggestions {
		label, color := severityFormat(s.Severity)
		tw.printf("  %s%-8s%s %s\n", color, label, colorReset, s.Message)
		tw.printf("  %s→ %s%s\n", colorDim, s.Recommendation, colorReset)
		if len(s.Columns) > 0 {
			tw.printf("  %scolumns: %s%s\n", colorDim, strings.Join(s.Columns, ", "), colorReset)
		}
		if i < len(suggestions)-1 {
			tw.printf("\n")
		}
	}

	return tw.err
}

func (tw *textWriter) renderPlanNode(node *plan.PlanNode, depth int) {
	indent := strings.Repeat("  ", depth+1)

	tw.printf("%s%s", indent, node.NodeType)
	if node.Relation != "" {
		tw.printf(" on %s", node.Relation)
	}
	if node.IndexName != "" {
		tw.printf(" using %s", node.IndexName)
	}

	var metrics []string
	if node.Cost != nil {
		metrics = append(metrics, fmt.Sprintf("cost=%.2f", node.Cost.Total))
	}
	if node.Rows != nil {
		metrics = append(metrics, fmt.Sprintf("rows=%d", *node.Rows))
	}
	if node.ActualTime != nil {
		metrics = append(metrics, fmt.Sprintf("time=%.3fms", node.ActualTime.Total))
	}
	if len(metrics) > 0 {
		tw.printf(" %s(%s)%s", colorDim, strings.Join(metrics, " "), colorReset)
	}
	tw.printf("\n")

	for _, child := range node.Children {
		tw.renderPlanNode(child, depth+1)
	}
}

func scoreColor(score int) string {
	switch {
	case score >= 90:
		return colorGreen
	case score >= 70:
		return colorYellow
	default:
		return colorRed
	}
}

func severityFormat(s analyzer.Severity) (string, string) {
	switch s {
	case analyzer.Critical:
		return "CRITICAL", colorRed
	case analyzer.Warning:
		return "WARNING", colorYellow
	default:
		return "INFO", colorCyan
	}
}

func RenderComparisonText(w io.Writer, result comparator.ComparisonResult) error {
	tw := &textWriter{w: w}
	s := result.Summary

	tw.printf("%s%sSummary%s\n\n", colorBold, colorCyan, colorReset)
	tw.printf("  Score:          %d → %s%d%s\n", int(s.OldScore), dirColor(s.ScoreDir), int(s.NewScore), colorReset)
	tw.printf("  Cost:           %s\n", formatDelta(s.OldTotalCost, s.NewTotalCost, s.CostPct, s.CostDir, "%.2f"))
	if s.OldExecutionTime > 0 || s.NewExecutionTime > 0 {
		tw.printf("  Execution Time: %s\n", formatDelta(s.OldExecutionTime, s.NewExecutionTime, s.TimePct, s.TimeDir, "%.3f ms"))
	}
	tw.printf("\n")

	tw.renderSuggestionDiff(s)

	changes := s.NodesAdded + s.NodesRemoved + s.NodesModified + s.NodesTypeChanged
	if changes == 0 {
		tw.printf("%s%sPlans are identical.%s\n", colorBold, colorGreen, colorReset)
		return tw.err
	}

	tw.printf("  Changes: %d modified, %d type changed, %d added, %d removed\n\n",
		s.NodesModified, s.NodesTypeChanged, s.NodesAdded, s.NodesRemoved)

	tw.printf("%s%sNode Details%s\n\n", colorBold, colorCyan, colorReset)

	for _, delta := range result.Deltas {
		tw.renderDelta(delta, 0)
	}

	tw.renderVerdict(s)

	return tw.err
}

func (tw *textWriter) renderSuggestionDiff(s comparator.Summary) {
	if len(s.Resolved) > 0 {
		tw.printf("%s%sResolved (%d)%s\n", colorBold, colorGreen, len(s.Resolved), colorReset)
		for _, sug := range s.Resolved {
			tw.printf("  %s✓ %s%s\n", colorGreen, sug.Message, colorReset)
		}
		tw.printf("\n")
	}
	if len(s.Introduced) > 0 {
		tw.printf("%s%sIntroduced (%d)%s\n", colorBold, colorRed, len(s.Introduced), colorReset)
		for _, sug := range s.Introduced {
			tw.printf("  %s✗ %s%s\n", colorRed, sug.Message, colorReset)
		}
		tw.printf("\n")
	}
}

func (tw *textWriter) renderDelta(d comparator.NodeDelta, depth int) {
	indent := strings.Repeat("  ", depth+1)

	switch d.ChangeType {
	case comparator.NoChange:
		for _, child := range d.Children {
			tw.renderDelta(child, depth)
		}
		return
	case comparator.Added:
		tw.renderAddedNode(indent, d)
	case comparator.Removed:
		tw.renderRemovedNode(indent, d)
	case comparator.TypeChanged:
		tw.renderTypeChangedNode(indent, d)
	case comparator.Modified:
		tw.renderModifiedNode(indent, d)
	}

	for _, child := range d.Children {
		tw.renderDelta(child, depth+1)
	}
}

func (tw *textWriter) renderAddedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s+ %s%s", indent, colorGreen, nodeLabel(d), colorReset)
	tw.printf(" (cost=%.2f", d.NewCost)
	if d.NewTime > 0 {
		tw.printf(" time=%.3fms", d.NewTime)
	}
	tw.printf(")\n")
}

func (tw *textWriter) renderRemovedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s- %s%s", indent, colorRed, nodeLabel(d), colorReset)
	tw.printf(" (cost=%.2f", d.OldCost)
	if d.OldTime > 0 {
		tw.printf(" time=%.3fms", d.OldTime)
	}
	tw.printf(")\n")
}

func (tw *textWriter) renderTypeChangedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s~ %s → %s%s", indent, colorYellow, d.OldNodeType, d.NewNodeType, colorReset)
	if d.Relation != "" {
		tw.printf(" on %s", d.Relation)
	}
	tw.printf("\n")
	tw.renderMetrics(indent, d)
}

func (tw *textWriter) renderModifiedNode(indent string, d comparator.NodeDelta) {
	tw.printf("%s%s~ %s%s\n", indent, colorYellow, nodeLabel(d), colorReset)
	tw.renderMetrics(indent, d)
}

func (tw *textWriter) renderMetrics(indent string, d comparator.NodeDelta) {
	tw.renderMetricLine(indent, "cost", d.OldCost, d.NewCost, d.CostPct, d.CostDir, "%.2f")
	if d.OldTime > 0 || d.NewTime > 0 {
		tw.renderMetricLine(indent, "time", d.OldTime, d.NewTime,
			pctChange(d.OldTime, d.NewTime), d.TimeDir, "%.3f ms")
	}
	if d.OldRows != d.NewRows {
		tw.printf("%s  rows: %d → %d (%+.1f%%)\n", indent, d.OldRows, d.NewRows,
			pctChange(float64(d.OldRows), float64(d.NewRows)))
	}
	tw.renderIndexNameChange(indent, d)
}

func (tw *textWriter) renderMetricLine(indent, label string, oldVal, newVal, pct float64, dir comparator.Direction, fmtStr string) {
	color := dirColor(dir)
	arrow := dirArrow(dir)
	oldStr := fmt.Sprintf(fmtStr, oldVal)
	newStr := fmt.Sprintf(fmtStr, newVal)
	tw.printf("%s  %s: %s → %s%s %s (%+.1f%%)%s\n", indent, label, oldStr, color, newStr, arrow, pct, colorReset)
}

func (tw *textWriter) renderIndexNameChange(indent string, d comparator.NodeDelta) {
	if d.OldIndexName == d.NewIndexName {
		return
	}
	if d.OldIndexName == "" {
		tw.printf("%s  %sindex added: %s%s\n", indent, colorGreen, d.NewIndexName, colorReset)
	} else if d.NewIndexName == "" {
		tw.printf("%s  %sindex removed: %s%s\n", indent, colorRed, d.OldIndexName, colorReset)
	} else {
		tw.printf("%s  %sindex: %s → %s%s\n", indent, colorYellow, d.OldIndexName, d.NewIndexName, colorReset)
	}
}

func (tw *textWriter) renderVerdict(s comparator.Summary) {
	var color string
	switch {
	case s.ScoreDir == comparator.Improved && s.CostDir != comparator.Regressed:
		color = colorGreen
	case s.ScoreDir == comparator.Regressed || s.CostDir == comparator.Regressed:
		color = colorRed
	case s.CostDir == comparator.Improved:
		color = colorYellow
	}
	if color != "" {
		tw.printf("\n%sVerdict: %s%s\n", color, s.Verdict, colorReset)
	} else {
		tw.printf("\nVerdict: %s\n", s.Verdict)
	}
}

func formatDelta(oldVal, newVal, pct float64, dir comparator.Direction, fmtStr string) string {
	color := dirColor(dir)
	arrow := dirArrow(dir)
	oldStr := fmt.Sprintf(fmtStr, oldVal)
	newStr := fmt.Sprintf(fmtStr, newVal)
	return fmt.Sprintf("%s → %s%s %s (%+.1f%%)%s", oldStr, color, newStr, arrow, pct, colorReset)
}

func dirColor(d comparator.Direction) string {
	switch d {
	case comparator.Improved:
		return colorGreen
	case comparator.Regressed:
		return colorRed
	default:
		return ""
	}
}

func dirArrow(d comparator.Direction) string {
	switch d {
	case comparator.Improved:
		return "↓"
	case comparator.Regressed:
		return "↑"
	default:
		return ""
	}
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

func nodeLabel(d comparator.NodeDelta) string {
	if d.Relation != "" {
		return fmt.Sprintf("%s on %s", d.NodeType, d.Relation)
	}
	return d.NodeType
}
