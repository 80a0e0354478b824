package planner

import (
	"testing"

	"finsbridge/pkg/runtime"
)

func tag(name string, area runtime.MemoryArea, addr uint, dt runtime.DataType) runtime.TagMapping {
	return runtime.TagMapping{TagName: name, MemoryArea: area, Address: addr, DataType: dt}
}

func TestPlanGroupsContiguousRun(t *testing.T) {
	tags := []runtime.TagMapping{
		tag("a", runtime.AreaDataMemory, 100, runtime.UINT16),
		tag("b", runtime.AreaDataMemory, 101, runtime.UINT16),
		tag("c", runtime.AreaDataMemory, 102, runtime.UINT16),
	}

	groups := Plan(tags)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if !groups[0].Batch {
		t.Errorf("expected a batch group")
	}
	if groups[0].WordCount() != 3 {
		t.Errorf("got word count %d, want 3", groups[0].WordCount())
	}
}

func TestPlanSplitsOnGap(t *testing.T) {
	tags := []runtime.TagMapping{
		tag("a", runtime.AreaDataMemory, 100, runtime.UINT16),
		tag("b", runtime.AreaDataMemory, 105, runtime.UINT16),
	}

	groups := Plan(tags)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	for _, g := range groups {
		if g.Batch {
			t.Errorf("expected single-tag groups, got a batch")
		}
	}
}

func TestPlanSplitsOnAreaChange(t *testing.T) {
	tags := []runtime.TagMapping{
		tag("a", runtime.AreaDataMemory, 100, runtime.UINT16),
		tag("b", runtime.AreaHolding, 101, runtime.UINT16),
	}

	groups := Plan(tags)
	if len(groups) != 2 {
		t.Errorf("got %d groups, want 2", len(groups))
	}
}

func TestPlanAccountsForMultiWordTypes(t *testing.T) {
	tags := []runtime.TagMapping{
		tag("a", runtime.AreaDataMemory, 100, runtime.REAL32),
		tag("b", runtime.AreaDataMemory, 102, runtime.REAL32),
	}

	groups := Plan(tags)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].WordCount() != 4 {
		t.Errorf("got word count %d, want 4", groups[0].WordCount())
	}
}
