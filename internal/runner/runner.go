// Package runner performs the side effects of a fully balanced bundle: it
// writes the rank-parameter file, sets up the runtime environment and
// launches aprun, or prints the whole triple in debug mode.
package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/sourceplane/wraprun/internal/bundle"
	"github.com/sourceplane/wraprun/internal/jobenv"
)

// Runner launches a bundle.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func New(stdout, stderr io.Writer) *Runner {
	return &Runner{Stdout: stdout, Stderr: stderr}
}

// Launch writes the rank-parameter file once, assembles the launcher
// invocation and its environment, and runs aprun. In debug mode nothing is
// launched; the invocation, environment and file contents are printed and
// the exit code is 0. In normal mode the launcher's own exit code is
// returned.
func (r *Runner) Launch(b *bundle.Bundle) (int, error) {
	argv, err := b.LauncherArgs()
	if err != nil {
		return 1, err
	}
	path, err := r.writeRankFile(b)
	if err != nil {
		return 1, err
	}
	env, err := b.Env(path)
	if err != nil {
		return 1, err
	}

	if b.Debug() {
		r.debugDump(b, argv, env, path)
		return 0, nil
	}
	// The split library only reads the file while aprun is alive.
	defer os.Remove(path)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = mergedEnviron(env)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("failed to launch %s: %w", argv[0], err)
	}
	return 0, nil
}

// writeRankFile writes one record per rank to a uniquely named file in the
// scratch directory. The file is written exactly once, after every group is
// balanced, so concurrent invocations on the same host never collide.
func (r *Runner) writeRankFile(b *bundle.Bundle) (string, error) {
	dir, err := jobenv.ScratchDir()
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, fmt.Sprintf("wraprun_%s_*.tmp", b.Instance().JobID))
	if err != nil {
		return "", fmt.Errorf("failed to create rank-parameter file: %w", err)
	}
	defer f.Close()
	for _, line := range b.FileLines() {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return "", fmt.Errorf("failed to write rank-parameter file: %w", err)
		}
	}
	return f.Name(), nil
}

func (r *Runner) debugDump(b *bundle.Bundle, argv []string, env map[string]string, path string) {
	fmt.Fprintln(r.Stdout, "BEGIN WRAPRUN DEBUGGING INFO")
	fmt.Fprintf(r.Stdout, " Aprun call signature:\n   %s\n\n", strings.Join(argv, " "))

	fmt.Fprintln(r.Stdout, " Environment variables:")
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.Stdout, "   %s=%s\n", k, env[k])
	}

	fmt.Fprintf(r.Stdout, "\n Internal state:\n   %s\n\n", b)

	lines := b.FileLines()
	width := len(fmt.Sprint(len(lines)))
	fmt.Fprintf(r.Stdout, " Rank parameter file (%s):\n", path)
	for i, line := range lines {
		fmt.Fprintf(r.Stdout, "   %0*d|%s\n", width, i, line)
	}
	fmt.Fprintln(r.Stdout, "END WRAPRUN DEBUGGING INFO")
}

// mergedEnviron layers the bundle's variables over the current process
// environment.
func mergedEnviron(extra map[string]string) []string {
	environ := os.Environ()
	out := make([]string, 0, len(environ)+len(extra))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if _, shadowed := extra[name]; !shadowed {
			out = append(out, kv)
		}
	}
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
