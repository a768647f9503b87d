package stream

import (
	"reflect"
	"testing"
)

func TestAccumulator(t *testing.T) {
	c1 := []ResultItem{{EntityType: "NAME", Text: "Jane Doe"}}
	c2 := []ResultItem{{EntityType: "EMAIL", Text: "jane@x.com"}, {EntityType: "AFFILIATION", Text: "CMU"}}
	c3 := []ResultItem{{EntityType: "TIME", Text: "Today"}}

	t.Run("MergeOrdering", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(c1)
		acc.Merge(c2)
		acc.Merge(c3)

		want := append(append(append([]ResultItem{}, c1...), c2...), c3...)
		if !reflect.DeepEqual(acc.Results(), want) {
			t.Errorf("running results = %+v, want %+v", acc.Results(), want)
		}
	})

	t.Run("SnapshotRebasesPartial", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(c1)

		partial := []ResultItem{{EntityType: "EMAIL", Text: "jane@x.com"}}
		snap := acc.Snapshot(partial)

		if len(snap) != 2 || snap[0] != c1[0] || snap[1] != partial[0] {
			t.Errorf("snapshot = %+v, want running then partial", snap)
		}
		// The running total is untouched by snapshots.
		if len(acc.Results()) != 1 {
			t.Errorf("snapshot mutated running results: %+v", acc.Results())
		}
	})

	t.Run("SnapshotIsFreshSlice", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(c1)

		snap := acc.Snapshot(nil)
		snap[0].Text = "mutated"
		if acc.Results()[0].Text != "Jane Doe" {
			t.Error("mutating a snapshot leaked into the running total")
		}
	})

	t.Run("EmptyMergeKeepsOrder", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Merge(c1)
		acc.Merge(nil)
		acc.Merge(c3)

		if len(acc.Results()) != 2 || acc.Results()[1] != c3[0] {
			t.Errorf("unexpected results after empty merge: %+v", acc.Results())
		}
	})
}
