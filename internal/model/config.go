package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the declarative form of a bundle: global options plus an
// ordered list of task groups. It is equivalent to setting the global
// options once and adding each listed group in order.
type Config struct {
	// Options holds global option values by name (debug, no_ld_preload...).
	Options map[string]any `yaml:"options" json:"options"`
	// Groups holds one task group per entry, in launch order.
	Groups []Group `yaml:"groups" json:"groups"`
}

// Group is one task-group entry. A config file may give a group either as a
// keyword map or as a single CLI-style argument string; exactly one of the
// two fields is set after decoding.
type Group struct {
	// Args is the CLI-style form, e.g. "-n 2,3 --w-cd ./a,./b ./exe".
	Args string
	// Keywords maps group option names to values of their declared shape.
	Keywords map[string]any
}

// UnmarshalYAML accepts either a scalar string or a mapping.
func (g *Group) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&g.Args)
	case yaml.MappingNode:
		return value.Decode(&g.Keywords)
	default:
		return fmt.Errorf("task group must be a string or a mapping (line %d)", value.Line)
	}
}
