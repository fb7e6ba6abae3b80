package task

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sourceplane/wraprun/internal/jobenv"
	"github.com/sourceplane/wraprun/internal/schema"
)

func testSet() *schema.Set {
	return schema.GroupOptions(jobenv.Instance{JobID: "1234", JobName: "job", Ordinal: 0})
}

func TestGroupRankAssignment(t *testing.T) {
	g, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{2, 3},
		schema.Exe: []string{"./a.out"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	if g.Colors() != 2 {
		t.Errorf("Colors() = %d, want 2", g.Colors())
	}
	ranks := g.Ranks()
	if len(ranks) != 5 {
		t.Fatalf("got %d ranks, want 5", len(ranks))
	}
	wantColors := []int{0, 0, 1, 1, 1}
	for i, r := range ranks {
		if r.Rank != i {
			t.Errorf("rank %d has id %d", i, r.Rank)
		}
		if r.Color != wantColors[i] {
			t.Errorf("rank %d has color %d, want %d", i, r.Color, wantColors[i])
		}
	}
	lastRank, lastColor := g.LastRankAndColor()
	if lastRank != 4 || lastColor != 1 {
		t.Errorf("LastRankAndColor() = (%d, %d), want (4, 1)", lastRank, lastColor)
	}
}

func TestGroupOffsetStart(t *testing.T) {
	g, err := NewGroup(testSet(), 5, 2, map[string]any{
		schema.Pes: []int{1},
		schema.Exe: []string{"./a.out"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	ranks := g.Ranks()
	if ranks[0].Rank != 5 || ranks[0].Color != 2 {
		t.Errorf("first rank = %v, want rank 5 color 2", ranks[0])
	}
}

func TestGroupInconsistentSplit(t *testing.T) {
	// Multi-element pes against a different multi-element cd is an error.
	_, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{1, 2, 3},
		schema.CD:  []string{"./a", "./b"},
		schema.Exe: []string{"./a.out"},
	})
	var splitErr *InconsistentSplitError
	if !errors.As(err, &splitErr) {
		t.Fatalf("got %v, want InconsistentSplitError", err)
	}
	if !strings.Contains(splitErr.Error(), "[2 3]") {
		t.Errorf("error %q does not list the disagreeing lengths", splitErr)
	}
}

func TestGroupScalarBroadcast(t *testing.T) {
	// A scalar pes against a two-element cd is not an error: the scalar is
	// broadcast to both colors.
	g, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: 3,
		schema.CD:  []string{"./a", "./b"},
		schema.Exe: []string{"./a.out"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	if diff := cmp.Diff([]int{3, 3}, g.Value(schema.Pes)); diff != "" {
		t.Errorf("pes mismatch (-want +got):\n%s", diff)
	}
	if len(g.Ranks()) != 6 {
		t.Errorf("got %d ranks, want 6", len(g.Ranks()))
	}
	if g.Ranks()[3].Path != "./b" {
		t.Errorf("rank 3 path = %q, want ./b", g.Ranks()[3].Path)
	}
}

func TestGroupBalancedLengthsAgree(t *testing.T) {
	g, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{1, 1, 2},
		schema.Exe: []string{"./a.out"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	for _, name := range testSet().Splitting() {
		v := g.Value(name)
		if v == nil {
			continue
		}
		if n := splitLen(v); n != g.Colors() {
			t.Errorf("option %s has %d values after balancing, want %d", name, n, g.Colors())
		}
	}
}

func TestGroupMissingPes(t *testing.T) {
	_, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Exe: []string{"./a.out"},
	})
	var taskErr *Error
	if !errors.As(err, &taskErr) {
		t.Fatalf("got %v, want task.Error", err)
	}
}

func TestGroupZeroPes(t *testing.T) {
	_, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{2, 0},
		schema.Exe: []string{"./a.out"},
	})
	var taskErr *Error
	if !errors.As(err, &taskErr) {
		t.Fatalf("got %v, want task.Error", err)
	}
}

func TestGroupMissingExe(t *testing.T) {
	_, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{1},
	})
	var taskErr *Error
	if !errors.As(err, &taskErr) {
		t.Fatalf("got %v, want task.Error", err)
	}
}

func TestUniqueDefaulting(t *testing.T) {
	t.Run("default value gets absolute color suffix", func(t *testing.T) {
		g, err := NewGroup(testSet(), 10, 4, map[string]any{
			schema.Pes: []int{1, 1},
			schema.Exe: []string{"./a.out"},
		})
		if err != nil {
			t.Fatalf("NewGroup: %v", err)
		}
		want := []string{"job.1234_w0.4", "job.1234_w0.5"}
		if diff := cmp.Diff(want, g.Value(schema.OE)); diff != "" {
			t.Errorf("oe mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("short user value gets index suffix", func(t *testing.T) {
		g, err := NewGroup(testSet(), 0, 0, map[string]any{
			schema.Pes: []int{1, 1, 1},
			schema.OE:  []string{"out"},
			schema.Exe: []string{"./a.out"},
		})
		if err != nil {
			t.Fatalf("NewGroup: %v", err)
		}
		want := []string{"out_w0", "out_w1", "out_w2"}
		if diff := cmp.Diff(want, g.Value(schema.OE)); diff != "" {
			t.Errorf("oe mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("full user value kept verbatim", func(t *testing.T) {
		g, err := NewGroup(testSet(), 0, 0, map[string]any{
			schema.Pes: []int{1, 1},
			schema.OE:  []string{"left", "right"},
			schema.Exe: []string{"./a.out"},
		})
		if err != nil {
			t.Fatalf("NewGroup: %v", err)
		}
		want := []string{"left", "right"}
		if diff := cmp.Diff(want, g.Value(schema.OE)); diff != "" {
			t.Errorf("oe mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestGroupCLIArgs(t *testing.T) {
	g, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes:      []int{2, 3},
		schema.CD:       []string{"./a", "./b"},
		"depth":         4,
		"strict_memory": true,
		schema.Exe:      []string{"./a.out", "-x"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	want := []string{"-n", "5", "-d", "4", "-ss", "./a.out", "-x"}
	if diff := cmp.Diff(want, g.CLIArgs()); diff != "" {
		t.Errorf("CLIArgs mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(g.CLIString(), "--w-cd") {
		t.Errorf("runtime-private option leaked into launcher args: %q", g.CLIString())
	}
}

func TestGroupFileLines(t *testing.T) {
	g, err := NewGroup(testSet(), 0, 0, map[string]any{
		schema.Pes: []int{1, 2},
		schema.CD:  []string{"./a", "./b"},
		schema.OE:  []string{"oa", "ob"},
		schema.Env: []string{"x=1", "x=2"},
		schema.Exe: []string{"./a.out"},
	})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	want := []string{
		"0 ./a oa x=1",
		"1 ./b ob x=2",
		"1 ./b ob x=2",
	}
	if diff := cmp.Diff(want, g.FileLines()); diff != "" {
		t.Errorf("FileLines mismatch (-want +got):\n%s", diff)
	}
}
