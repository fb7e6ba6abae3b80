// Package args turns raw CLI token streams and keyword maps into normalized
// option values, using the declared option schema to decide which flags are
// valid and what shape each value takes.
package args

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sourceplane/wraprun/internal/schema"
)

// Params maps option names to parsed values. Split options hold []int or
// []string with one element per communicator color; scalars hold string,
// int or bool. Iteration order is taken from the schema, never the map.
type Params map[string]any

// ArgumentError reports a malformed or unrecognized CLI token.
type ArgumentError struct {
	Token  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Token, e.Reason)
}

// ParseString parses a whitespace-separated option string, as found in a
// configuration file group or an API call.
func ParseString(set *schema.Set, text string) (Params, error) {
	return Parse(set, strings.Fields(text))
}

// Parse matches each flag token against the schema and produces typed
// values. The first token that is not a declared flag (or everything after
// a literal "--") is captured verbatim as the executable remainder. Unknown
// flags, missing values and non-numeric count elements are errors.
func Parse(set *schema.Set, tokens []string) (Params, error) {
	params := Params{}
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok == "--" {
			break
		}
		opt, ok := set.ByFlag(tok)
		if !ok {
			if strings.HasPrefix(tok, "-") {
				return nil, &ArgumentError{Token: tok, Reason: "unknown flag"}
			}
			break
		}
		if opt.Kind == schema.Flag {
			params[opt.Name] = true
			i++
			continue
		}
		if i+1 >= len(tokens) {
			return nil, &ArgumentError{Token: tok, Reason: "missing value"}
		}
		value, err := parseValue(opt, tokens[i+1])
		if err != nil {
			return nil, err
		}
		params[opt.Name] = value
		i += 2
	}

	if i < len(tokens) {
		rest := tokens[i:]
		if rest[0] == "--" {
			rest = rest[1:]
		}
		exe, ok := remainderOption(set)
		if !ok {
			return nil, &ArgumentError{Token: tokens[i], Reason: "unexpected token"}
		}
		if len(rest) > 0 {
			params[exe.Name] = append([]string(nil), rest...)
		}
	}
	return params, nil
}

// ParseKnown is the relaxed variant of Parse: unknown tokens are skipped
// instead of failing, and no remainder is captured. It lets a caller pull
// recognized options out of an argv without judging the rest.
func ParseKnown(set *schema.Set, tokens []string) Params {
	params := Params{}
	i := 0
	for i < len(tokens) {
		opt, ok := set.ByFlag(tokens[i])
		if !ok {
			i++
			continue
		}
		if opt.Kind == schema.Flag {
			params[opt.Name] = true
			i++
			continue
		}
		if i+1 >= len(tokens) {
			break
		}
		if value, err := parseValue(opt, tokens[i+1]); err == nil {
			params[opt.Name] = value
		}
		i += 2
	}
	return params
}

func parseValue(opt *schema.Option, raw string) (any, error) {
	switch opt.Kind {
	case schema.String:
		return raw, nil
	case schema.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ArgumentError{Token: raw, Reason: "integer required"}
		}
		return n, nil
	case schema.StringList:
		return strings.Split(raw, ","), nil
	case schema.IntList:
		segments := strings.Split(raw, ",")
		values := make([]int, 0, len(segments))
		for _, seg := range segments {
			n, err := strconv.Atoi(seg)
			if err != nil {
				return nil, &ArgumentError{Token: raw, Reason: "integer list required"}
			}
			values = append(values, n)
		}
		return values, nil
	default:
		return nil, &ArgumentError{Token: raw, Reason: "value not allowed here"}
	}
}

func remainderOption(set *schema.Set) (*schema.Option, bool) {
	for _, opt := range set.Options() {
		if opt.Kind == schema.Remainder {
			return opt, true
		}
	}
	return nil, false
}

// SplitGroups divides an argv into MPMD group segments on the ":" separator
// token. The first segment may also carry global options; empty segments
// from doubled separators are dropped.
func SplitGroups(tokens []string) [][]string {
	var groups [][]string
	start := 0
	for i, tok := range tokens {
		if tok == ":" {
			groups = append(groups, tokens[start:i])
			start = i + 1
		}
	}
	groups = append(groups, tokens[start:])
	out := [][]string{groups[0]}
	for _, g := range groups[1:] {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
