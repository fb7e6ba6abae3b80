package task

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/sourceplane/wraprun/internal/schema"
)

// Group is one MPMD task group. After construction every splitting option
// holds exactly one value per communicator color, and the group's ranks are
// assigned contiguously from the given starting rank and color.
type Group struct {
	set        *schema.Set
	values     map[string]any
	firstRank  int
	firstColor int
	colors     int
	ranks      []Rank
}

// NewGroup balances the given option values and assigns ranks. Values that
// are absent take their schema defaults. Rank and color numbering starts at
// firstRank and firstColor, normally one past the previous group's last.
func NewGroup(set *schema.Set, firstRank, firstColor int, params map[string]any) (*Group, error) {
	g := &Group{
		set:        set,
		values:     make(map[string]any, len(set.Options())),
		firstRank:  firstRank,
		firstColor: firstColor,
	}
	for _, opt := range set.Options() {
		if v, ok := params[opt.Name]; ok && v != nil {
			g.values[opt.Name] = v
		} else {
			g.values[opt.Name] = opt.Default
		}
	}
	if exe, _ := g.values[schema.Exe].([]string); len(exe) == 0 {
		return nil, taskErrorf("task group needs an executable")
	}
	if err := g.balance(); err != nil {
		return nil, err
	}
	if err := g.assignRanks(); err != nil {
		return nil, err
	}
	return g, nil
}

// balance reconciles the per-color value counts of all splitting options
// into a single color count. Scalars are wrapped; a single distinct length
// greater than one fixes the color count; unique options are given
// synthesized per-color values; everything still of length one is repeated
// across all colors.
func (g *Group) balance() error {
	lengths := make(map[int]bool)
	for _, name := range g.set.Splitting() {
		v := g.values[name]
		if v == nil {
			continue
		}
		v = wrapScalar(v)
		g.values[name] = v
		if n := splitLen(v); n > 1 {
			lengths[n] = true
		}
	}
	if len(lengths) > 1 {
		e := &InconsistentSplitError{}
		for n := range lengths {
			e.Counts = append(e.Counts, n)
		}
		return e
	}
	g.colors = 1
	for n := range lengths {
		g.colors = n
	}

	for _, name := range g.set.NeedsUnique() {
		opt, _ := g.set.Lookup(name)
		v, _ := g.values[name].([]string)
		if len(v) == 0 {
			continue
		}
		switch {
		case reflect.DeepEqual(g.values[name], opt.Default):
			// Shared default: suffix with the absolute color id so that
			// simultaneously launched colors never collide on one file.
			vals := make([]string, g.colors)
			for i := range vals {
				vals[i] = fmt.Sprintf("%s.%d", v[0], g.firstColor+i)
			}
			g.values[name] = vals
		case len(v) != g.colors:
			// User gave one value for several colors: suffix with the
			// zero-based color index within the group.
			vals := make([]string, g.colors)
			for i := range vals {
				vals[i] = fmt.Sprintf("%s_w%d", v[0], i)
			}
			g.values[name] = vals
		}
	}

	for _, name := range g.set.Splitting() {
		v := g.values[name]
		if v == nil || splitLen(v) == g.colors {
			continue
		}
		g.values[name] = repeat(v, g.colors)
	}
	return nil
}

// assignRanks creates the ranks of every color in ascending order. Rank ids
// are contiguous and strictly increasing, carrying forward across colors.
func (g *Group) assignRanks() error {
	pes, ok := g.values[schema.Pes].([]int)
	if !ok || len(pes) == 0 {
		return taskErrorf("task group needs a PE count")
	}
	rankID := g.firstRank
	for i, count := range pes {
		color := g.firstColor + i
		if count <= 0 {
			return taskErrorf("invalid PE count %d for color %d", count, color)
		}
		for j := 0; j < count; j++ {
			g.ranks = append(g.ranks, Rank{
				Rank:  rankID,
				Color: color,
				Path:  g.colorString(schema.CD, i, "./"),
				Fname: g.colorString(schema.OE, i, ""),
				Env:   g.colorString(schema.Env, i, ""),
			})
			rankID++
		}
	}
	return nil
}

func (g *Group) colorString(name string, i int, fallback string) string {
	if v, ok := g.values[name].([]string); ok && i < len(v) {
		return v[i]
	}
	return fallback
}

// Ranks returns the ranks of this group in ascending rank order.
func (g *Group) Ranks() []Rank {
	return g.ranks
}

// Colors returns the number of communicator colors in this group.
func (g *Group) Colors() int {
	return g.colors
}

// Value returns the balanced value of the named option, or nil.
func (g *Group) Value(name string) any {
	return g.values[name]
}

// LastRankAndColor returns the highest rank and color ids in this group,
// the starting point for the next group in the bundle.
func (g *Group) LastRankAndColor() (rank, color int) {
	last := g.ranks[len(g.ranks)-1]
	return last.Rank, last.Color
}

// CLIArgs returns the aprun tokens representing this group, in declaration
// order. Only launcher-bound options are rendered; the PE count carries the
// sum across colors, and runtime-private options are omitted entirely.
func (g *Group) CLIArgs() []string {
	var out []string
	for _, opt := range g.set.Options() {
		if !opt.Launcher {
			continue
		}
		out = append(out, opt.Render(g.values[opt.Name])...)
	}
	return out
}

// CLIString returns CLIArgs joined into one aprun group string.
func (g *Group) CLIString() string {
	return strings.Join(g.CLIArgs(), " ")
}

// Tokens returns wraprun-form tokens that reproduce this group when
// parsed again: every non-nil option, per-color lists comma-joined.
func (g *Group) Tokens() []string {
	var out []string
	var exe []string
	for _, opt := range g.set.Options() {
		v := g.values[opt.Name]
		if v == nil {
			continue
		}
		switch vv := v.(type) {
		case bool:
			if vv {
				out = append(out, opt.Flag)
			}
		case []int:
			parts := make([]string, len(vv))
			for i, n := range vv {
				parts[i] = strconv.Itoa(n)
			}
			out = append(out, opt.Flag, strings.Join(parts, ","))
		case []string:
			if opt.Kind == schema.Remainder {
				exe = vv
				continue
			}
			out = append(out, opt.Flag, strings.Join(vv, ","))
		case int:
			out = append(out, opt.Flag, strconv.Itoa(vv))
		case string:
			out = append(out, opt.Flag, vv)
		}
	}
	return append(out, exe...)
}

// FileLines returns the rank-parameter records for this group in ascending
// rank order.
func (g *Group) FileLines() []string {
	lines := make([]string, len(g.ranks))
	for i, r := range g.ranks {
		lines[i] = r.FileLine()
	}
	return lines
}

func (g *Group) String() string {
	first := g.ranks[0]
	last := g.ranks[len(g.ranks)-1]
	exe, _ := g.values[schema.Exe].([]string)
	return fmt.Sprintf("TaskGroup(r%d.c%d-r%d.c%d, exe=%q)",
		first.Rank, first.Color, last.Rank, last.Color, exe[0])
}

func wrapScalar(v any) any {
	switch vv := v.(type) {
	case int:
		return []int{vv}
	case string:
		return []string{vv}
	default:
		return v
	}
}

func splitLen(v any) int {
	switch vv := v.(type) {
	case []int:
		return len(vv)
	case []string:
		return len(vv)
	default:
		return 1
	}
}

func repeat(v any, n int) any {
	switch vv := v.(type) {
	case []int:
		out := make([]int, 0, len(vv)*n)
		for i := 0; i < n; i++ {
			out = append(out, vv...)
		}
		return out[:n]
	case []string:
		out := make([]string, 0, len(vv)*n)
		for i := 0; i < n; i++ {
			out = append(out, vv...)
		}
		return out[:n]
	default:
		return v
	}
}
