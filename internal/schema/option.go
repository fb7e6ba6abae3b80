// Package schema declares the options wraprun understands, at global scope
// and at task-group scope. Every option is described once, in a static
// table, and the parser, the balancer and the CLI renderer all consume the
// same descriptors. Adding an option means adding a table entry, nothing
// else.
package schema

import (
	"fmt"
	"strconv"
)

// Kind describes the shape of an option's value and how a CLI token
// following its flag is parsed.
type Kind int

const (
	// String is a scalar string value ("-a xt5").
	String Kind = iota
	// Int is a scalar integer value ("-d 4").
	Int
	// Flag is a boolean present/absent flag consuming no value ("-ss").
	Flag
	// StringList is a comma-separated per-color list ("--w-cd ./a,./b").
	StringList
	// IntList is a comma-separated per-color integer list ("-n 2,3").
	IntList
	// Remainder captures the rest of the token stream verbatim (the
	// executable and its arguments).
	Remainder
)

// Option declares one named wraprun option.
//
// Split options may carry one value per communicator color; their defaults
// are always single-element lists because an unspecified option still has
// exactly one applicable color until the group is balanced. Unique options
// additionally require a distinct value per color even when defaulted.
// Launcher options are forwarded to the aprun command line; the rest exist
// only for the rank-parameter file.
type Option struct {
	Name     string
	Flag     string
	Kind     Kind
	Split    bool
	Unique   bool
	Launcher bool
	Required bool
	Default  any
	Help     string

	// Format overrides the default CLI value rendering. It receives the
	// balanced value and returns the value tokens that follow the flag.
	Format func(v any) []string
}

// Render returns the aprun CLI tokens for a value of this option. A nil
// value renders to nothing.
func (o *Option) Render(v any) []string {
	if v == nil {
		return nil
	}
	var out []string
	if o.Flag != "" {
		out = append(out, o.Flag)
	}
	if o.Format != nil {
		return append(out, o.Format(v)...)
	}
	switch vv := v.(type) {
	case bool:
		// Presence of the flag is the whole message.
	case []string:
		out = append(out, vv...)
	case []int:
		for _, n := range vv {
			out = append(out, strconv.Itoa(n))
		}
	case int:
		out = append(out, strconv.Itoa(vv))
	case string:
		out = append(out, vv)
	default:
		out = append(out, fmt.Sprint(vv))
	}
	return out
}

func sumInts(v any) int {
	total := 0
	for _, n := range v.([]int) {
		total += n
	}
	return total
}
