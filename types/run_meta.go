package types

import "time"

// RunMeta identifies one invocation of the harness (one run over N tasks).
type RunMeta struct {
	RunID     string
	StartedAt time.Time
}
