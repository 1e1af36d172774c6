package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"snippetbot/internal/domain/execution"
)

// waitDelay bounds how long Wait keeps copying output after the process exits
// while an orphaned grandchild still holds the pipes.
const waitDelay = time.Second

type processSpec struct {
	Argv      []string
	Dir       string
	Stdin     string
	FeedStdin bool
	// Timeout of zero means the run is bounded only by the context.
	Timeout time.Duration
}

type processRunner struct {
	firejail       string
	firejailArgs   []string
	maxOutputBytes int
}

// isolate prefixes argv with the firejail invocation when one is configured.
func (r *processRunner) isolate(argv []string) []string {
	if r.firejail == "" {
		return argv
	}
	out := make([]string, 0, len(r.firejailArgs)+len(argv)+1)
	out = append(out, r.firejail)
	out = append(out, r.firejailArgs...)
	return append(out, argv...)
}

// run starts the process and races its completion against the timeout. The
// returned error is only set for failures to spawn or communicate with the
// process; a timed out run is reported through Result.TimedOut.
func (r *processRunner) run(ctx context.Context, spec processSpec) (*execution.Result, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay
	if spec.FeedStdin {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, max: r.maxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: r.maxOutputBytes}
	setupProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spec.Argv[0], err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var expired <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		// Background children may outlive the program; they share its group.
		_ = killProcessGroup(cmd)
		if err != nil && !errors.Is(err, exec.ErrWaitDelay) {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				return nil, fmt.Errorf("wait for %s: %w", spec.Argv[0], err)
			}
		}
		result := &execution.Result{
			Stdout:   stdoutBuf.String(),
			Stderr:   stderrBuf.String(),
			ExitCode: int64(cmd.ProcessState.ExitCode()),
			Duration: time.Since(start),
		}
		// A signal death leaves nothing on stderr; surface it as a runtime failure.
		if result.ExitCode < 0 && result.Stderr == "" {
			result.Stderr = cmd.ProcessState.String()
		}
		return result, nil
	case <-expired:
		_ = killProcessGroup(cmd)
		<-done
		return &execution.Result{
			ExitCode: -1,
			Duration: time.Since(start),
			TimedOut: true,
		}, nil
	case <-ctx.Done():
		_ = killProcessGroup(cmd)
		<-done
		return nil, fmt.Errorf("run %s: %w", spec.Argv[0], ctx.Err())
	}
}
