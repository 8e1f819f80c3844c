package analyzer

import "github.com/samurmaykrr/planscope/internal/plan"

// Severity ranks how urgently a suggestion should be addressed.
type Severity string

const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
	Info     Severity = "info"
)

// IsCritical reports whether this is a critical issue.
func (s Severity) IsCritical() bool {
	return s == Critical
}

// IsWarningOrAbove reports whether this is at least a warning.
func (s Severity) IsWarningOrAbove() bool {
	return s == Critical || s == Warning
}

// SuggestionType classifies what kind of issue a suggestion describes.
type SuggestionType string

const (
	MissingIndex        SuggestionType = "missing_index"
	FullTableScan       SuggestionType = "full_table_scan"
	HighRowEstimate     SuggestionType = "high_row_estimate"
	InefficientJoin     SuggestionType = "inefficient_join"
	LargeSort           SuggestionType = "large_sort"
	HighMemoryUsage     SuggestionType = "high_memory_usage"
	InefficientFilter   SuggestionType = "inefficient_filter"
	LargeSeqScan        SuggestionType = "large_seq_scan"
	ExpensiveNestedLoop SuggestionType = "expensive_nested_loop"
	MultipleSeqScans    SuggestionType = "multiple_seq_scans"
)

var suggestionTypeDescriptions = map[SuggestionType]string{
	MissingIndex:        "Consider adding an index",
	FullTableScan:       "Full table scan detected",
	HighRowEstimate:     "High row estimate - statistics may be outdated",
	InefficientJoin:     "Inefficient join strategy",
	LargeSort:           "Sort on large dataset",
	HighMemoryUsage:     "High memory usage",
	InefficientFilter:   "Filter removing many rows",
	LargeSeqScan:        "Sequential scan on large table",
	ExpensiveNestedLoop: "Expensive nested loop join",
	MultipleSeqScans:    "Multiple sequential scans detected",
}

// Description returns a human-readable description of the suggestion type.
func (t SuggestionType) Description() string {
	return suggestionTypeDescriptions[t]
}

// Suggestion is a single optimization finding with a recommended action.
type Suggestion struct {
	Type            SuggestionType `json:"suggestion_type"`
	Severity        Severity       `json:"severity"`
	Message         string         `json:"message"`
	Recommendation  string         `json:"recommendation"`
	Table           string         `json:"table,omitempty"`
	Columns         []string       `json:"columns,omitempty"`
	EstimatedImpact float64        `json:"estimated_impact"`
}

// NewSuggestion creates a suggestion with the default impact of 0.5.
func NewSuggestion(t SuggestionType, severity Severity, message, recommendation string) Suggestion {
	return Suggestion{
		Type:            t,
		Severity:        severity,
		Message:         message,
		Recommendation:  recommendation,
		EstimatedImpact: 0.5,
	}
}

// WithTable sets the related table.
func (s Suggestion) WithTable(table string) Suggestion {
	s.Table = table
	return s
}

// WithColumns sets the related columns.
func (s Suggestion) WithColumns(columns []string) Suggestion {
	s.Columns = columns
	return s
}

// WithImpact sets the estimated impact, clamped to [0, 1].
func (s Suggestion) WithImpact(impact float64) Suggestion {
	s.EstimatedImpact = min(max(impact, 0), 1)
	return s
}

// QueryAnalysis is the result of analyzing a plan: the suggestions found and
// a performance score starting at 100 that each suggestion reduces.
type QueryAnalysis struct {
	Plan             *plan.QueryPlan `json:"plan"`
	Suggestions      []Suggestion    `json:"suggestions"`
	PerformanceScore int             `json:"performance_score"`
	Summary          string          `json:"summary"`
}

// NewAnalysis creates an empty analysis for the given plan with a perfect
// score.
func NewAnalysis(p *plan.QueryPlan) *QueryAnalysis {
	return &QueryAnalysis{Plan: p, PerformanceScore: 100}
}

// AddSuggestion records a suggestion and deducts its severity-weighted
// penalty from the score, saturating at zero.
func (a *QueryAnalysis) AddSuggestion(s Suggestion) {
	penalty := 0
	switch s.Severity {
	case Critical:
		penalty = 25
	case Warning:
		penalty = 10
	case Info:
		penalty = 3
	}
	a.PerformanceScore = max(a.PerformanceScore-penalty, 0)
	a.Suggestions = append(a.Suggestions, s)
}

// HasCriticalIssues reports whether any suggestion is critical.
func (a *QueryAnalysis) HasCriticalIssues() bool {
	for _, s := range a.Suggestions {
		if s.Severity.IsCritical() {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any suggestion is a warning or worse.
func (a *QueryAnalysis) HasWarnings() bool {
	for _, s := range a.Suggestions {
		if s.Severity.IsWarningOrAbove() {
			return true
		}
	}
	return false
}

// SuggestionCount returns the number of suggestions.
func (a *QueryAnalysis) SuggestionCount() int {
	return len(a.Suggestions)
}

// SortedSuggestions returns the suggestions ordered critical-first, then
// warnings, then info, preserving relative order within each tier.
func (a *QueryAnalysis) SortedSuggestions() []Suggestion {
	sorted := make([]Suggestion, 0, len(a.Suggestions))
	for _, sev := range []Severity{Critical, Warning, Info} {
		for _, s := range a.Suggestions {
			if s.Severity == sev {
				sorted = append(sorted, s)
			}
		}
	}
	return sorted
}
