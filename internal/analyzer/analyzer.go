// Package analyzer inspects a parsed query plan for common performance
// problems and produces ranked optimization suggestions. Analysis is a pure
// function of the plan and the thresholds; no detector can fail.
package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samurmaykrr/planscope/internal/plan"
)

// Config holds the thresholds that tune the detectors.
type Config struct {
	// HighRowThreshold is the row count above which an issue is severe.
	HighRowThreshold int64 `yaml:"high_row_threshold"`
	// LargeTableThreshold is the row count above which a sequential scan is
	// worth flagging at all.
	LargeTableThreshold int64 `yaml:"large_table_threshold"`
	// FilterEfficiencyThreshold is the fraction of removed rows above which
	// a filter is flagged as inefficient.
	FilterEfficiencyThreshold float64 `yaml:"filter_efficiency_threshold"`
	// SuggestIndexes enables the missing-index detector.
	SuggestIndexes bool `yaml:"suggest_indexes"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighRowThreshold:          10_000,
		LargeTableThreshold:       1_000,
		FilterEfficiencyThreshold: 0.5,
		SuggestIndexes:            true,
	}
}

// QueryAnalyzer runs the detector passes over a plan.
type QueryAnalyzer struct {
	config Config
}

// New creates an analyzer with default thresholds.
func New() *QueryAnalyzer {
	return &QueryAnalyzer{config: DefaultConfig()}
}

// WithConfig creates an analyzer with custom thresholds.
func WithConfig(config Config) *QueryAnalyzer {
	return &QueryAnalyzer{config: config}
}

// Config returns the analyzer's configuration.
func (qa *QueryAnalyzer) Config() Config {
	return qa.config
}

// Analyze runs every detector pass over the plan in a fixed order and
// returns the collected suggestions with a summary.
func (qa *QueryAnalyzer) Analyze(p *plan.QueryPlan) *QueryAnalysis {
	analysis := NewAnalysis(p)

	qa.checkFullTableScans(p, analysis)
	qa.checkMissingIndexes(p, analysis)
	qa.checkInefficientJoins(p, analysis)
	qa.checkLargeSorts(p, analysis)
	qa.checkInefficientFilters(p, analysis)
	qa.checkMultipleSeqScans(p, analysis)

	analysis.Summary = qa.generateSummary(analysis)
	return analysis
}

func (qa *QueryAnalyzer) checkFullTableScans(p *plan.QueryPlan, analysis *QueryAnalysis) {
	for node := range p.Nodes() {
		if node.NodeType != plan.SeqScan {
			continue
		}
		rows := int64(0)
		if node.Rows != nil {
			rows = *node.Rows
		}
		if rows < qa.config.LargeTableThreshold {
			continue
		}

		table := node.Relation
		if table == "" {
			table = "unknown"
		}
		severity := Warning
		if rows >= qa.config.HighRowThreshold {
			severity = Critical
		}
		impact := min(float64(rows)/float64(qa.config.HighRowThreshold), 1.0)

		analysis.AddSuggestion(NewSuggestion(
			FullTableScan,
			severity,
			fmt.Sprintf("Full table scan on '%s' reading %d rows", table, rows),
			fmt.Sprintf("Consider adding an index on '%s' or filtering on indexed columns", table),
		).WithTable(table).WithImpact(impact))
	}
}

func (qa *QueryAnalyzer) checkMissingIndexes(p *plan.QueryPlan, analysis *QueryAnalysis) {
	if !qa.config.SuggestIndexes {
		return
	}

	for node := range p.Nodes() {
		if node.NodeType != plan.SeqScan || node.Filter == "" {
			continue
		}
		rows := int64(0)
		if node.Rows != nil {
			rows = *node.Rows
		}
		if rows < qa.config.LargeTableThreshold {
			continue
		}

		table := node.Relation
		if table == "" {
			table = "unknown"
		}
		columns := extractFilterColumns(node.Filter)

		analysis.AddSuggestion(NewSuggestion(
			MissingIndex,
			Warning,
			fmt.Sprintf("Sequential scan with filter on '%s': %s", table, node.Filter),
			fmt.Sprintf("Consider creating an index: CREATE INDEX idx_%s_... ON %s (...)",
				strings.ReplaceAll(table, ".", "_"), table),
		).WithTable(table).WithColumns(columns).WithImpact(0.7))
	}
}

func (qa *QueryAnalyzer) checkInefficientJoins(p *plan.QueryPlan, analysis *QueryAnalysis) {
	for node := range p.Nodes() {
		if node.NodeType != plan.NestedLoop {
			continue
		}
		rows := int64(0)
		if node.Rows != nil {
			rows = *node.Rows
		}
		loops := int64(1)
		if node.Loops != nil {
			loops = *node.Loops
		}
		if rows*loops < qa.config.HighRowThreshold {
			continue
		}

		analysis.AddSuggestion(NewSuggestion(
			ExpensiveNestedLoop,
			Warning,
			fmt.Sprintf("Nested loop join processing %d rows with %d loops", rows, loops),
			"Consider adding indexes on join columns or restructuring the query",
		).WithImpact(0.6))
	}
}

func (qa *QueryAnalyzer) checkLargeSorts(p *plan.QueryPlan, analysis *QueryAnalysis) {
	for node := range p.Nodes() {
		if node.NodeType != plan.Sort {
			continue
		}
		rows := int64(0)
		if node.Rows != nil {
			rows = *node.Rows
		}
		memory := int64(0)
		if node.MemoryUsedKB != nil {
			memory = *node.MemoryUsedKB
		}
		if rows < qa.config.HighRowThreshold && memory <= 1024 {
			continue
		}

		message := fmt.Sprintf("Sort operation on %d rows", rows)
		if memory > 0 {
			message = fmt.Sprintf("Sort operation on %d rows using %dKB memory", rows, memory)
		}

		analysis.AddSuggestion(NewSuggestion(
			LargeSort,
			Info,
			message,
			"Consider adding an index to avoid sorting or increasing work_mem",
		).WithImpact(0.4))
	}
}

func (qa *QueryAnalyzer) checkInefficientFilters(p *plan.QueryPlan, analysis *QueryAnalysis) {
	for node := range p.Nodes() {
		if node.RowsRemovedByFilter == nil || node.ActualRows == nil {
			continue
		}
		removed := *node.RowsRemovedByFilter
		total := removed + *node.ActualRows
		if total <= 0 {
			continue
		}
		ratio := float64(removed) / float64(total)
		if ratio < qa.config.FilterEfficiencyThreshold {
			continue
		}

		table := node.Relation
		if table == "" {
			table = "unknown"
		}

		analysis.AddSuggestion(NewSuggestion(
			InefficientFilter,
			Info,
			fmt.Sprintf("Filter removed %.0f%% of rows (%d of %d)", ratio*100, removed, total),
			fmt.Sprintf("Consider adding an index on the filtered column(s) of '%s'", table),
		).WithTable(table).WithImpact(ratio*0.5))
	}
}

func (qa *QueryAnalyzer) checkMultipleSeqScans(p *plan.QueryPlan, analysis *QueryAnalysis) {
	var tables []string
	count := 0
	for node := range p.Nodes() {
		if node.NodeType != plan.SeqScan {
			continue
		}
		count++
		if node.Relation != "" {
			tables = append(tables, node.Relation)
		}
	}
	if count < 3 {
		return
	}

	analysis.AddSuggestion(NewSuggestion(
		MultipleSeqScans,
		Warning,
		fmt.Sprintf("Query performs %d sequential scans on tables: %s", count, strings.Join(tables, ", ")),
		"Consider adding indexes or restructuring the query to reduce full table scans",
	).WithImpact(0.5))
}

func (qa *QueryAnalyzer) generateSummary(analysis *QueryAnalysis) string {
	var critical, warnings, info int
	for _, s := range analysis.Suggestions {
		switch s.Severity {
		case Critical:
			critical++
		case Warning:
			warnings++
		case Info:
			info++
		}
	}

	switch {
	case len(analysis.Suggestions) == 0:
		return "Query plan looks optimal - no issues detected."
	case critical > 0:
		return fmt.Sprintf(
			"Query has %d critical issue(s), %d warning(s), and %d suggestion(s). Performance score: %d/100",
			critical, warnings, info, analysis.PerformanceScore)
	case warnings > 0:
		return fmt.Sprintf(
			"Query has %d warning(s) and %d suggestion(s). Performance score: %d/100",
			warnings, info, analysis.PerformanceScore)
	default:
		return fmt.Sprintf(
			"Query has %d minor suggestion(s). Performance score: %d/100",
			info, analysis.PerformanceScore)
	}
}

// filterOperators in match priority.
var filterOperators = []string{
	"=", "<>", "!=", ">=", "<=", ">", "<", " IS ", " LIKE ", " IN ",
}

// extractFilterColumns guesses column names from a filter expression. Best
// effort only: it splits on AND/OR, takes the left operand of the first
// operator found, and discards anything that looks like a literal.
func extractFilterColumns(filter string) []string {
	var columns []string

	parts := strings.Split(filter, " AND ")
	parts = append(parts, strings.Split(filter, " OR ")...)

	for _, part := range parts {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(part), "("), ")")

		for _, op := range filterOperators {
			idx := strings.Index(trimmed, op)
			if idx < 0 {
				continue
			}
			candidate := strings.TrimSpace(trimmed[:idx])
			if candidate == "" || candidate[0] == '\'' || candidate[0] == '"' ||
				(candidate[0] >= '0' && candidate[0] <= '9') {
				break
			}
			clean := strings.TrimSpace(strings.TrimPrefix(candidate, "("))
			if dot := strings.LastIndex(clean, "."); dot >= 0 {
				clean = clean[dot+1:]
			}
			if clean != "" && !slices.Contains(columns, clean) {
				columns = append(columns, clean)
			}
			break
		}
	}

	return columns
}
