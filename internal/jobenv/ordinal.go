package jobenv

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// lockDir is a variable so tests can redirect the lockfile location.
var lockDir = os.TempDir()

// ordinal returns the zero-based position of this process among all wraprun
// invocations sharing a parent shell under the same job id. Each invocation
// appends its pid to a lockfile under an exclusive flock; its line number is
// its ordinal. The lockfile lives for the duration of the job script and is
// cleaned up with the node's tmp space.
func ordinal(jobID string) (int, error) {
	path := filepath.Join(lockDir, fmt.Sprintf("wraprun.%s.%d", jobID, os.Getppid()))
	pid := os.Getpid()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to open instance lockfile: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return 0, fmt.Errorf("failed to lock instance lockfile: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		return 0, fmt.Errorf("failed to register instance: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}

	index := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n, err := strconv.Atoi(scanner.Text())
		if err != nil {
			continue
		}
		if n == pid {
			return index, nil
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("pid %d missing from instance lockfile", pid)
}
