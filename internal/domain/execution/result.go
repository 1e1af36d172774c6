package execution

import "time"

// Result captures the raw outcome of running a process or container.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int64
	Duration time.Duration
	// TimedOut is set when the run was terminated for exceeding its time limit.
	TimedOut bool
	// OOMKilled is set when the run was terminated for exceeding its memory limit.
	OOMKilled bool
}
