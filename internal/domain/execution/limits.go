package execution

import "time"

// RunLimits describes resource boundaries for a single run step.
//
// A zero value RunLimits imposes no additional restrictions.
type RunLimits struct {
	// TimeLimit caps the wall-clock time of the run. Zero means no limit.
	TimeLimit time.Duration
	// MemoryLimitBytes caps memory usage in bytes. Zero means no limit.
	MemoryLimitBytes int64
}

// Normalize clamps negative limits to zero.
func (l RunLimits) Normalize() RunLimits {
	if l.TimeLimit < 0 {
		l.TimeLimit = 0
	}
	if l.MemoryLimitBytes < 0 {
		l.MemoryLimitBytes = 0
	}
	return l
}
