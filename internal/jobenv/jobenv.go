// Package jobenv resolves the batch-job environment a wraprun invocation
// runs inside: the PBS job identity, the per-job instance ordinal, the
// accounting name and the scratch directory for rank-parameter files.
package jobenv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Environment variables consumed by wraprun.
const (
	EnvJobID       = "PBS_JOBID"
	EnvJobName     = "PBS_JOBNAME"
	EnvAccount     = "PBS_ACCOUNT"
	EnvTestAccount = "W_TEST_ACCOUNT"
	EnvScratchRoot = "MEMBERWORK"
)

// Instance identifies one wraprun invocation within a batch job. Several
// invocations may run concurrently under the same job id; Ordinal
// disambiguates them so that generated file names never collide.
type Instance struct {
	JobID   string
	JobName string
	Ordinal int

	// Placeholder is set when no job id was found in the environment and a
	// local one was generated. A placeholder id forces debug mode: nothing
	// is ever launched under a made-up job.
	Placeholder bool
}

// Detect builds the Instance for the current process. The instance ordinal
// comes from a lockfile shared by all invocations under the same parent
// shell; see ordinal().
func Detect() Instance {
	inst := Instance{
		JobID:   os.Getenv(EnvJobID),
		JobName: os.Getenv(EnvJobName),
	}
	if inst.JobName == "" {
		inst.JobName = "unnamed"
	}
	if inst.JobID == "" {
		inst.JobID = "local-" + uuid.NewString()[:8]
		inst.Placeholder = true
		slog.Warn("no job id in environment, forcing debug mode", "var", EnvJobID)
	}
	ord, err := ordinal(inst.JobID)
	if err != nil {
		slog.Warn("could not determine instance ordinal, assuming first", "error", err)
		ord = 0
	}
	inst.Ordinal = ord
	return inst
}

// Account returns the job accounting name. The W_TEST_ACCOUNT override wins
// so tests and debug runs can proceed outside a real allocation.
func Account() (string, error) {
	if acct := os.Getenv(EnvTestAccount); acct != "" {
		return acct, nil
	}
	if acct := os.Getenv(EnvAccount); acct != "" {
		return acct, nil
	}
	return "", fmt.Errorf(
		"job account not found: set %s (or %s for testing)", EnvAccount, EnvTestAccount)
}

// ScratchDir returns the directory that holds rank-parameter files, creating
// it if needed. Under a batch job this is {MEMBERWORK}/{account}/.wraprun;
// without a scratch root the current directory is used.
func ScratchDir() (string, error) {
	root := os.Getenv(EnvScratchRoot)
	if root == "" {
		return os.Getwd()
	}
	acct, err := Account()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, acct, ".wraprun")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}
