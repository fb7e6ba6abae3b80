// Package bundle assembles an ordered list of MPMD task groups into one
// aprun invocation, carrying the rank and color counters across groups and
// owning the launcher-wide options.
package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sourceplane/wraprun/internal/args"
	"github.com/sourceplane/wraprun/internal/jobenv"
	"github.com/sourceplane/wraprun/internal/schema"
	"github.com/sourceplane/wraprun/internal/task"
)

// Launcher is the job launcher invoked in MPMD mode.
const Launcher = "aprun"

// MaxGroups caps the task groups in one bundle. ALPS degrades badly past
// this point, so a runaway job description fails fast instead of launching.
const MaxGroups = 2048

// ErrTooManyGroups is returned by AddTask once MaxGroups is reached.
var ErrTooManyGroups = fmt.Errorf(
	"too many task groups (> %d) in bundle: aborting to protect ALPS stability", MaxGroups)

// Environment variables produced for the split library.
const (
	EnvPreload        = "WRAPRUN_PRELOAD"
	EnvFile           = "WRAPRUN_FILE"
	EnvRedirectOutErr = "W_REDIRECT_OUTERR"
	EnvIgnoreSegv     = "W_IGNORE_SEGV"
	EnvUnsetPreload   = "W_UNSET_PRELOAD"
)

// preloadFallback is the wrapper library location used when WRAPRUN_PRELOAD
// is not set, keyed by the job's accounting name.
const preloadFallback = "/lustre/atlas/proj-shared/%s/libsplit.so"

// Bundle is a whole MPMD job: ordered task groups, the running rank/color
// cursor, and the global launcher options.
type Bundle struct {
	inst      jobenv.Instance
	globalSet *schema.Set
	groupSet  *schema.Set
	options   args.Params
	groups    []*task.Group
	nextRank  int
	nextColor int
}

// New creates an empty bundle for the given invocation instance. Global
// options missing from the map take their schema defaults.
func New(inst jobenv.Instance, options args.Params) *Bundle {
	b := &Bundle{
		inst:      inst,
		globalSet: schema.GlobalOptions(),
		groupSet:  schema.GroupOptions(inst),
		options:   args.Params{},
	}
	for _, opt := range b.globalSet.Options() {
		if v, ok := options[opt.Name]; ok && v != nil {
			b.options[opt.Name] = v
		} else {
			b.options[opt.Name] = opt.Default
		}
	}
	return b
}

// SetOption overrides one global option after construction; config loading
// uses it to merge file-level options under CLI-level ones.
func (b *Bundle) SetOption(name string, v any) {
	if v != nil && b.globalSet.Has(name) {
		b.options[name] = v
	}
}

// Option returns the value of a global option, or nil.
func (b *Bundle) Option(name string) any {
	return b.options[name]
}

// Debug reports whether the bundle runs in debug (no-launch) mode. A
// placeholder job id always forces it.
func (b *Bundle) Debug() bool {
	v, _ := b.options[schema.Debug].(bool)
	return v || b.inst.Placeholder
}

// Instance returns the invocation identity the bundle was built for.
func (b *Bundle) Instance() jobenv.Instance {
	return b.inst
}

// AddTask appends one task group from normalized option values. The group
// starts at the bundle's current rank/color cursor; on success the cursor
// advances to one past the group's last rank and color.
func (b *Bundle) AddTask(params args.Params) (*task.Group, error) {
	if len(b.groups) >= MaxGroups {
		return nil, ErrTooManyGroups
	}
	group, err := task.NewGroup(b.groupSet, b.nextRank, b.nextColor, params)
	if err != nil {
		return nil, err
	}
	lastRank, lastColor := group.LastRankAndColor()
	b.nextRank = lastRank + 1
	b.nextColor = lastColor + 1
	b.groups = append(b.groups, group)
	return group, nil
}

// AddTaskString appends one task group from a raw CLI-style argument
// string, e.g. "-n 1,2 --w-cd ./a,./b ./exe arg".
func (b *Bundle) AddTaskString(text string) (*task.Group, error) {
	params, err := args.ParseString(b.groupSet, text)
	if err != nil {
		return nil, err
	}
	return b.AddTask(params)
}

// AddTaskKeywords appends one task group from a keyword map, as listed in
// a configuration file.
func (b *Bundle) AddTaskKeywords(kv map[string]any) (*task.Group, error) {
	params, err := args.FromKeywords(b.groupSet, kv)
	if err != nil {
		return nil, err
	}
	return b.AddTask(params)
}

// AddTaskTokens appends one task group from an already-split token list.
func (b *Bundle) AddTaskTokens(tokens []string) (*task.Group, error) {
	params, err := args.Parse(b.groupSet, tokens)
	if err != nil {
		return nil, err
	}
	return b.AddTask(params)
}

// Groups returns the task groups in the order they were added.
func (b *Bundle) Groups() []*task.Group {
	return b.groups
}

// Ranks returns every rank of every group in ascending rank order.
func (b *Bundle) Ranks() []task.Rank {
	var ranks []task.Rank
	for _, g := range b.groups {
		ranks = append(ranks, g.Ranks()...)
	}
	return ranks
}

// FileLines returns the full rank-parameter file content, one record per
// rank, starting at rank 0.
func (b *Bundle) FileLines() []string {
	var lines []string
	for _, g := range b.groups {
		lines = append(lines, g.FileLines()...)
	}
	return lines
}

// LauncherArgs returns the complete launcher invocation: the launcher name,
// the global launcher flags, then each group's tokens joined by the MPMD
// group separator.
func (b *Bundle) LauncherArgs() ([]string, error) {
	if len(b.groups) == 0 {
		return nil, errors.New("bundle has no task groups")
	}
	out := []string{Launcher}
	for _, opt := range b.globalSet.Options() {
		if !opt.Launcher {
			continue
		}
		out = append(out, opt.Render(b.options[opt.Name])...)
	}
	for i, g := range b.groups {
		if i > 0 {
			out = append(out, ":")
		}
		out = append(out, g.CLIArgs()...)
	}
	return out, nil
}

// Env returns the environment variables the split library needs at runtime,
// given the path of the written rank-parameter file. LD_PRELOAD comes from
// WRAPRUN_PRELOAD unless preloading is disabled; without it the fallback
// wrapper under the job's accounting project is used.
func (b *Bundle) Env(rankFile string) (map[string]string, error) {
	env := map[string]string{
		EnvFile:           rankFile,
		EnvRedirectOutErr: "1",
		EnvIgnoreSegv:     "1",
		EnvUnsetPreload:   "1",
	}
	if noPreload, _ := b.options[schema.NoLDPreload].(bool); !noPreload {
		preload := os.Getenv(EnvPreload)
		if preload == "" {
			acct, err := jobenv.Account()
			if err != nil {
				return nil, fmt.Errorf("%s not set and no fallback available: %w", EnvPreload, err)
			}
			preload = fmt.Sprintf(preloadFallback, acct)
			slog.Warn("using fallback wrapper library", "var", EnvPreload, "path", preload)
		}
		env["LD_PRELOAD"] = preload
	}
	return env, nil
}

func (b *Bundle) String() string {
	return fmt.Sprintf("Bundle(ranks=%d, colors=%d)", b.nextRank, b.nextColor)
}
