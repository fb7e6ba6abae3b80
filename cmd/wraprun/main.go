package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/sourceplane/wraprun/internal/args"
	"github.com/sourceplane/wraprun/internal/bundle"
	"github.com/sourceplane/wraprun/internal/jobenv"
	"github.com/sourceplane/wraprun/internal/loader"
	"github.com/sourceplane/wraprun/internal/runner"
	"github.com/sourceplane/wraprun/internal/schema"
)

// exitCode carries the launcher subprocess's exit code out of the command.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "wraprun [global options] task [ : task]...",
	Short: "A flexible aprun task bundling tool",
	Long: "wraprun translates a bundle of MPMD task groups into the aprun\n" +
		"invocation, rank-parameter file and environment needed to run\n" +
		"independent programs under one MPI job.\n\n" +
		"Each task is \"-n pes[,pes...] [options] exe [args...]\" and tasks are\n" +
		"separated by \" : \". A comma-separated PE list splits the task's ranks\n" +
		"into independent communicator colors.",
	// The launcher-style argv (interleaved flags, ":" separators, verbatim
	// executable remainders) is owned by the schema-driven parser.
	DisableFlagParsing: true,
	SilenceUsage:       true,
	RunE:               run,
}

func init() {
	rootCmd.SetHelpTemplate("{{.Long}}\n\n" + optionsHelp() + "{{.UsageString}}")
}

func run(cmd *cobra.Command, argv []string) error {
	for _, tok := range argv {
		if tok == "-h" || tok == "--help" {
			return cmd.Help()
		}
	}

	b, err := buildBundle(jobenv.Detect(), argv)
	if err != nil {
		return err
	}

	code, err := runner.New(os.Stdout, os.Stderr).Launch(b)
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}

// buildBundle translates an argv into a ready-to-launch bundle: global
// options and optional first task from the leading segment, config-file
// groups, then the remaining CLI segments. A config-only argv parses
// cleanly through the strict pass (no task flags, pes and exe unset), so
// any parse failure is a genuine error and is never swallowed.
func buildBundle(inst jobenv.Instance, argv []string) (*bundle.Bundle, error) {
	globalSet := schema.GlobalOptions()
	groupSet := schema.GroupOptions(inst)
	merged := schema.Merge(globalSet, groupSet)

	segments := args.SplitGroups(argv)
	first, err := args.Parse(merged, segments[0])
	if err != nil {
		return nil, err
	}
	hasCLITasks := first[schema.Pes] != nil || first[schema.Exe] != nil

	globals := args.Params{}
	group := args.Params{}
	for name, v := range first {
		if globalSet.Has(name) {
			globals[name] = v
		} else {
			group[name] = v
		}
	}

	b := bundle.New(inst, globals)
	if roe, _ := b.Option(schema.Roe).(bool); roe {
		slog.Warn("--w-roe is deprecated: redirecting stdio is the default behavior")
	}

	confPath, _ := b.Option(schema.Conf).(string)
	if confPath != "" {
		config, err := loader.LoadConfig(confPath)
		if err != nil {
			return nil, err
		}
		confOpts, err := args.FromKeywords(globalSet, config.Options)
		if err != nil {
			return nil, err
		}
		for name, v := range confOpts {
			if _, explicit := globals[name]; !explicit {
				b.SetOption(name, v)
			}
		}
		for _, g := range config.Groups {
			if g.Args != "" {
				if _, err := b.AddTaskString(g.Args); err != nil {
					return nil, err
				}
				continue
			}
			if _, err := b.AddTaskKeywords(g.Keywords); err != nil {
				return nil, err
			}
		}
	} else if !hasCLITasks {
		return nil, fmt.Errorf("please provide a config file or a task")
	}

	if hasCLITasks {
		if _, err := b.AddTask(group); err != nil {
			return nil, err
		}
		for _, segment := range segments[1:] {
			if _, err := b.AddTaskTokens(segment); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// optionsHelp renders the flag reference from the option tables so the help
// text can never drift from what the parser accepts.
func optionsHelp() string {
	out := "Global Options (must precede the first task):\n"
	for _, opt := range schema.GlobalOptions().Options() {
		out += fmt.Sprintf("  %-14s %s\n", opt.Flag, opt.Help)
	}
	out += "\nTask Options:\n"
	for _, opt := range schema.GroupOptions(jobenv.Instance{}).Options() {
		flag := opt.Flag
		if flag == "" {
			flag = "exe [...]"
		}
		out += fmt.Sprintf("  %-14s %s\n", flag, opt.Help)
	}
	return out
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
