package schema

// Set is an ordered, read-only collection of option descriptors for one
// scope. Declaration order is significant: it fixes the order options are
// rendered back to the aprun command line.
type Set struct {
	ordered []*Option
	byName  map[string]*Option
	byFlag  map[string]*Option
}

// NewSet builds a Set from options in declaration order.
func NewSet(opts ...*Option) *Set {
	s := &Set{
		byName: make(map[string]*Option, len(opts)),
		byFlag: make(map[string]*Option, len(opts)),
	}
	for _, opt := range opts {
		s.ordered = append(s.ordered, opt)
		s.byName[opt.Name] = opt
		if opt.Flag != "" {
			s.byFlag[opt.Flag] = opt
		}
	}
	return s
}

// Merge returns a new Set containing the options of all given sets, in
// order. Later sets win name collisions, which do not occur in practice.
func Merge(sets ...*Set) *Set {
	var all []*Option
	for _, s := range sets {
		all = append(all, s.ordered...)
	}
	return NewSet(all...)
}

// Options returns the descriptors in declaration order.
func (s *Set) Options() []*Option {
	return s.ordered
}

// Lookup returns the named option, or false if it is not declared.
func (s *Set) Lookup(name string) (*Option, bool) {
	opt, ok := s.byName[name]
	return opt, ok
}

// ByFlag returns the option triggered by a CLI flag token.
func (s *Set) ByFlag(flag string) (*Option, bool) {
	opt, ok := s.byFlag[flag]
	return opt, ok
}

// Has reports whether the named option is declared in this set.
func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns all declared option names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.ordered))
	for _, opt := range s.ordered {
		names = append(names, opt.Name)
	}
	return names
}

// Splitting returns the names of options that may carry one value per
// communicator color.
func (s *Set) Splitting() []string {
	var names []string
	for _, opt := range s.ordered {
		if opt.Split {
			names = append(names, opt.Name)
		}
	}
	return names
}

// NeedsUnique returns the names of splitting options whose values must
// differ per color even when defaulted.
func (s *Set) NeedsUnique() []string {
	var names []string
	for _, opt := range s.ordered {
		if opt.Unique {
			names = append(names, opt.Name)
		}
	}
	return names
}

// Defined partitions the declared names carrying a non-nil value in vals
// into launcher-bound and internal-only, each in declaration order.
func (s *Set) Defined(vals map[string]any) (launcher, internal []string) {
	for _, opt := range s.ordered {
		if v, ok := vals[opt.Name]; !ok || v == nil {
			continue
		}
		if opt.Launcher {
			launcher = append(launcher, opt.Name)
		} else {
			internal = append(internal, opt.Name)
		}
	}
	return launcher, internal
}
