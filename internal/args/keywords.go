package args

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sourceplane/wraprun/internal/schema"
)

// FromKeywords normalizes a keyword map (a config-file group or an API
// call) into the same typed Params that Parse produces. YAML decoding
// hands over untyped scalars and []any lists, so every value is coerced
// against the option's declared kind.
func FromKeywords(set *schema.Set, kv map[string]any) (Params, error) {
	params := Params{}
	for name, raw := range kv {
		opt, ok := set.Lookup(name)
		if !ok {
			return nil, &ArgumentError{Token: name, Reason: "unknown option"}
		}
		value, err := coerce(opt, raw)
		if err != nil {
			return nil, err
		}
		params[name] = value
	}
	return params, nil
}

func coerce(opt *schema.Option, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch opt.Kind {
	case schema.Flag:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case schema.String:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case schema.Int:
		if n, ok := raw.(int); ok {
			return n, nil
		}
		if s, ok := raw.(string); ok {
			if n, err := strconv.Atoi(s); err == nil {
				return n, nil
			}
		}
	case schema.IntList:
		switch v := raw.(type) {
		case int:
			return []int{v}, nil
		case []int:
			return v, nil
		case []any:
			values := make([]int, 0, len(v))
			for _, e := range v {
				n, ok := e.(int)
				if !ok {
					return nil, &ArgumentError{
						Token:  opt.Name,
						Reason: fmt.Sprintf("integer list required, got element %v", e),
					}
				}
				values = append(values, n)
			}
			return values, nil
		case string:
			return parseValue(opt, v)
		}
	case schema.StringList:
		switch v := raw.(type) {
		case string:
			return []string{v}, nil
		case []string:
			return v, nil
		case []any:
			values := make([]string, 0, len(v))
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, &ArgumentError{
						Token:  opt.Name,
						Reason: fmt.Sprintf("string list required, got element %v", e),
					}
				}
				values = append(values, s)
			}
			return values, nil
		}
	case schema.Remainder:
		switch v := raw.(type) {
		case string:
			return strings.Fields(v), nil
		case []string:
			return v, nil
		case []any:
			values := make([]string, 0, len(v))
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, &ArgumentError{
						Token:  opt.Name,
						Reason: fmt.Sprintf("string list required, got element %v", e),
					}
				}
				values = append(values, s)
			}
			return values, nil
		}
	}
	return nil, &ArgumentError{
		Token:  opt.Name,
		Reason: fmt.Sprintf("unsupported value %v (%T)", raw, raw),
	}
}
