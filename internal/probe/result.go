package probe

import "time"

// Result is the outcome of a single reachability probe.
type Result struct {
	OK     bool
	RTT    time.Duration // round-trip time, valid only when OK
	Reason string        // failure reason, set only when !OK
	At     time.Time     // when the probe was issued
}
