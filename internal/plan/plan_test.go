package plan

import (
	"encoding/json"
	"testing"
)

// buildTestPlan returns a small join plan:
//
//	HashJoin
//	├── SeqScan users
//	└── Hash
//	    └── IndexScan orders
func buildTestPlan() *QueryPlan {
	scan := NewNode(SeqScan).WithRelation("users").WithCost(0, 20).WithRows(1000)
	inner := NewNode(IndexScan).WithRelation("orders").WithIndex("idx_orders_user")
	hash := NewNode(Hash).WithChild(inner)
	root := NewNode(HashJoin).WithCost(12.5, 35).WithRows(500).
		WithChild(scan).WithChild(hash)
	return New(root)
}

func TestNew_CachesTotalsFromRoot(t *testing.T) {
	p := buildTestPlan()

	if p.TotalCost == nil || *p.TotalCost != 35 {
		t.Errorf("TotalCost = %v, want 35", p.TotalCost)
	}
	if p.TotalRows == nil || *p.TotalRows != 500 {
		t.Errorf("TotalRows = %v, want 500", p.TotalRows)
	}
}

func TestNew_NoCostNoTotals(t *testing.T) {
	p := New(NewNode(Result))

	if p.TotalCost != nil || p.TotalRows != nil {
		t.Errorf("totals = %v/%v, want nil/nil", p.TotalCost, p.TotalRows)
	}
}

func TestNodes_PreOrder(t *testing.T) {
	p := buildTestPlan()

	var order []NodeType
	for n := range p.Nodes() {
		order = append(order, n.NodeType)
	}

	want := []NodeType{HashJoin, SeqScan, Hash, IndexScan}
	if len(order) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestNodes_EarlyStop(t *testing.T) {
	p := buildTestPlan()

	count := 0
	for range p.Nodes() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("visited %d nodes after break, want 2", count)
	}
}

func TestNodeCountAndDepth(t *testing.T) {
	p := buildTestPlan()

	if got := p.Root.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
	if got := p.Root.Depth(); got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}

	leaf := NewNode(SeqScan)
	if leaf.NodeCount() != 1 || leaf.Depth() != 1 {
		t.Errorf("leaf NodeCount/Depth = %d/%d, want 1/1", leaf.NodeCount(), leaf.Depth())
	}
}

func TestFindNodesByType(t *testing.T) {
	p := buildTestPlan()

	scans := p.FindNodesByType(SeqScan)
	if len(scans) != 1 || scans[0].Relation != "users" {
		t.Errorf("FindNodesByType(SeqScan) = %v, want one scan on users", scans)
	}
	if got := p.FindNodesByType(Sort); got != nil {
		t.Errorf("FindNodesByType(Sort) = %v, want nil", got)
	}
}

func TestHasSequentialScansAndHashOperations(t *testing.T) {
	p := buildTestPlan()

	if !p.HasSequentialScans() {
		t.Error("HasSequentialScans = false, want true")
	}
	if !p.HasHashOperations() {
		t.Error("HasHashOperations = false, want true")
	}

	indexOnly := New(NewNode(IndexOnlyScan))
	if indexOnly.HasSequentialScans() {
		t.Error("index-only plan reports sequential scans")
	}
	if indexOnly.HasHashOperations() {
		t.Error("index-only plan reports hash operations")
	}
}

func TestNodeClassification(t *testing.T) {
	scans := []NodeType{SeqScan, IndexScan, IndexOnlyScan, BitmapIndexScan, BitmapHeapScan, TidScan, ForeignScan, CteScan}
	for _, nt := range scans {
		if !NewNode(nt).IsScan() {
			t.Errorf("%q.IsScan() = false, want true", nt)
		}
	}
	joins := []NodeType{NestedLoop, HashJoin, MergeJoin}
	for _, nt := range joins {
		if !NewNode(nt).IsJoin() {
			t.Errorf("%q.IsJoin() = false, want true", nt)
		}
	}
	if NewNode(Sort).IsScan() || NewNode(Sort).IsJoin() {
		t.Error("Sort classified as scan or join")
	}
}

func TestEffectiveCost(t *testing.T) {
	n := NewNode(Sort).WithCost(10, 35)
	cost, ok := n.EffectiveCost()
	if !ok || cost != 25 {
		t.Errorf("EffectiveCost = %v, %v, want 25, true", cost, ok)
	}

	if _, ok := NewNode(Sort).EffectiveCost(); ok {
		t.Error("EffectiveCost reported ok without a cost estimate")
	}
}

func TestNodeTypeFromPostgres(t *testing.T) {
	tests := []struct {
		in   string
		want NodeType
	}{
		{"Seq Scan", SeqScan},
		{"Index Only Scan", IndexOnlyScan},
		{"HashAggregate", HashAggregate},
		{"Hash Aggregate", HashAggregate},
		{"Gather Merge", GatherMerge},
		{"Made Up Scan", Unknown},
	}
	for _, tt := range tests {
		if got := NodeTypeFromPostgres(tt.in); got != tt.want {
			t.Errorf("NodeTypeFromPostgres(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseJoinType(t *testing.T) {
	tests := []struct {
		in   string
		want JoinType
	}{
		{"Inner", JoinInner},
		{"LEFT", JoinLeft},
		{"left outer", JoinLeft},
		{"Full Outer", JoinFull},
		{"Semi", JoinSemi},
		{"Anti", JoinAnti},
	}
	for _, tt := range tests {
		got, ok := ParseJoinType(tt.in)
		if !ok || got != tt.want {
			t.Errorf("ParseJoinType(%q) = %q, %v, want %q", tt.in, got, ok, tt.want)
		}
	}
	if _, ok := ParseJoinType("sideways"); ok {
		t.Error("ParseJoinType accepted an invalid join type")
	}
}

func TestPotentiallySlow(t *testing.T) {
	for _, nt := range []NodeType{SeqScan, NestedLoop, Sort} {
		if !nt.PotentiallySlow() {
			t.Errorf("%q.PotentiallySlow() = false, want true", nt)
		}
	}
	if IndexScan.PotentiallySlow() {
		t.Error("IndexScan flagged as potentially slow")
	}
}

func TestQueryPlan_JSONRoundTrip(t *testing.T) {
	p := buildTestPlan()
	p.WithPlanningTime(0.1).WithExecutionTime(2.5)
	p.Root.PutExtra("Parallel Aware", true)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded QueryPlan
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Root.NodeType != HashJoin {
		t.Errorf("root NodeType = %q, want %q", decoded.Root.NodeType, HashJoin)
	}
	if decoded.Root.NodeCount() != 4 {
		t.Errorf("NodeCount after round trip = %d, want 4", decoded.Root.NodeCount())
	}
	if decoded.TotalCost == nil || *decoded.TotalCost != 35 {
		t.Errorf("TotalCost = %v, want 35", decoded.TotalCost)
	}
	if decoded.ExecutionTimeMS == nil || *decoded.ExecutionTimeMS != 2.5 {
		t.Errorf("ExecutionTimeMS = %v, want 2.5", decoded.ExecutionTimeMS)
	}
	if v, ok := decoded.Root.Extra["Parallel Aware"].(bool); !ok || !v {
		t.Errorf("Extra lost in round trip: %v", decoded.Root.Extra)
	}
}

func TestDescription_KnownAndUnknown(t *testing.T) {
	if SeqScan.Description() == "" {
		t.Error("SeqScan has no description")
	}
	if NodeType("whatever").Description() != Unknown.Description() {
		t.Error("unexpected description for unmapped node type")
	}
}
