// Package task models one MPMD task group: it balances per-color option
// values, assigns globally sequential rank and color ids, and renders the
// group back into aprun CLI tokens and rank-parameter records.
package task

import "fmt"

// Rank is one process slot within a task group. Ranks are created once,
// during group construction, and never change afterwards.
type Rank struct {
	Rank  int
	Color int
	Path  string
	Fname string
	Env   string
}

// FileLine renders the rank-parameter file record for this rank. The split
// library reads the fields positionally: color, working directory, output
// basename, environment tag.
func (r Rank) FileLine() string {
	return fmt.Sprintf("%d %s %s %s", r.Color, r.Path, r.Fname, r.Env)
}

func (r Rank) String() string {
	return fmt.Sprintf("Rank(%d:%d)", r.Rank, r.Color)
}
