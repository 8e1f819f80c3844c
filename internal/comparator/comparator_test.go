package comparator

import (
	"testing"

	"github.com/samurmaykrr/planscope/internal/analyzer"
	"github.com/samurmaykrr/planscope/internal/plan"
)

func analyze(p *plan.QueryPlan) *analyzer.QueryAnalysis {
	return analyzer.New().Analyze(p)
}

func TestCompare_SamePlanIsNoChange(t *testing.T) {
	c := New()
	build := func() *plan.QueryPlan {
		return plan.New(plan.NewNode(plan.SeqScan).WithRelation("users").
			WithCost(0, 20).WithRows(100))
	}

	result := c.Compare(analyze(build()), analyze(build()))

	root := result.Deltas[0]
	if root.ChangeType != NoChange {
		t.Errorf("ChangeType = %v, want NoChange", root.ChangeType)
	}
	if root.CostDelta != 0 {
		t.Errorf("CostDelta = %f, want 0", root.CostDelta)
	}
	if len(result.Summary.Introduced) != 0 || len(result.Summary.Resolved) != 0 {
		t.Errorf("suggestion diff = %v/%v, want empty",
			result.Summary.Introduced, result.Summary.Resolved)
	}
	if result.Summary.Verdict != "Plans are equivalent within the significance threshold" {
		t.Errorf("verdict = %q", result.Summary.Verdict)
	}
}

func TestCompare_CostIncreaseRegresses(t *testing.T) {
	c := New()
	old := plan.New(plan.NewNode(plan.SeqScan).WithRelation("users").WithCost(0, 20).WithRows(100))
	new := plan.New(plan.NewNode(plan.SeqScan).WithRelation("users").WithCost(0, 40).WithRows(100))

	result := c.Compare(analyze(old), analyze(new))

	root := result.Deltas[0]
	if root.ChangeType != Modified {
		t.Errorf("ChangeType = %v, want Modified", root.ChangeType)
	}
	if root.CostDir != Regressed {
		t.Errorf("CostDir = %v, want Regressed", root.CostDir)
	}
	if root.CostDelta != 20 {
		t.Errorf("CostDelta = %f, want 20", root.CostDelta)
	}
	if result.Summary.CostPct != 100 {
		t.Errorf("CostPct = %f, want 100", result.Summary.CostPct)
	}
}

func TestCompare_TypeChange(t *testing.T) {
	c := New()
	old := plan.New(plan.NewNode(plan.SeqScan).WithRelation("users").WithCost(0, 200).WithRows(5000))
	new := plan.New(plan.NewNode(plan.IndexScan).WithRelation("users").
		WithIndex("idx_users_email").WithCost(0, 8).WithRows(1))

	result := c.Compare(analyze(old), analyze(new))

	root := result.Deltas[0]
	if root.ChangeType != TypeChanged {
		t.Errorf("ChangeType = %v, want TypeChanged", root.ChangeType)
	}
	if root.OldNodeType != string(plan.SeqScan) || root.NewNodeType != string(plan.IndexScan) {
		t.Errorf("type change = %q -> %q", root.OldNodeType, root.NewNodeType)
	}
	if result.Summary.NodesTypeChanged != 1 {
		t.Errorf("NodesTypeChanged = %d, want 1", result.Summary.NodesTypeChanged)
	}
}

func TestCompare_ResolvedSuggestion(t *testing.T) {
	c := New()
	// Old plan triggers a full-table-scan finding; new one is clean.
	old := plan.New(plan.NewNode(plan.SeqScan).WithRelation("orders").WithRows(50_000))
	new := plan.New(plan.NewNode(plan.IndexScan).WithRelation("orders").
		WithIndex("idx_orders_user").WithRows(10))

	result := c.Compare(analyze(old), analyze(new))

	if len(result.Summary.Resolved) == 0 {
		t.Fatal("expected resolved suggestions")
	}
	if result.Summary.Resolved[0].Type != analyzer.FullTableScan {
		t.Errorf("resolved[0].Type = %q, want full table scan", result.Summary.Resolved[0].Type)
	}
	if len(result.Summary.Introduced) != 0 {
		t.Errorf("introduced = %v, want none", result.Summary.Introduced)
	}
	if result.Summary.ScoreDir != Improved {
		t.Errorf("ScoreDir = %v, want Improved", result.Summary.ScoreDir)
	}
}

func TestCompare_AddedAndRemovedChildren(t *testing.T) {
	c := New()
	old := plan.New(plan.NewNode(plan.NestedLoop).
		WithChild(plan.NewNode(plan.SeqScan).WithRelation("a")).
		WithChild(plan.NewNode(plan.SeqScan).WithRelation("b")))
	new := plan.New(plan.NewNode(plan.NestedLoop).
		WithChild(plan.NewNode(plan.SeqScan).WithRelation("a")))

	result := c.Compare(analyze(old), analyze(new))

	if result.Summary.NodesRemoved != 1 {
		t.Errorf("NodesRemoved = %d, want 1", result.Summary.NodesRemoved)
	}

	reversed := c.Compare(analyze(new), analyze(old))
	if reversed.Summary.NodesAdded != 1 {
		t.Errorf("NodesAdded = %d, want 1", reversed.Summary.NodesAdded)
	}
}

func TestPctChange(t *testing.T) {
	tests := []struct {
		old, new, want float64
	}{
		{0, 0, 0},
		{0, 5, 100},
		{10, 15, 50},
		{20, 10, -50},
	}
	for _, tt := range tests {
		if got := pctChange(tt.old, tt.new); got != tt.want {
			t.Errorf("pctChange(%v, %v) = %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}
