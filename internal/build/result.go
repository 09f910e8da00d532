package build

import (
	"time"
)

// Status tags the outcome of a best-effort stage.
type Status int

const (
	// StatusOK means the stage produced its intended output.
	StatusOK Status = iota
	// StatusDegraded means the stage failed and a fallback was used: an empty
	// stylesheet, or the unminified script.
	StatusDegraded
)

// String returns the string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of the stylesheet or script stage.
type Outcome struct {
	Status Status
	Reason error
}

// OK returns a successful Outcome.
func OK() Outcome {
	return Outcome{Status: StatusOK}
}

// Degraded returns an Outcome recording why the fallback was used.
func Degraded(reason error) Outcome {
	return Outcome{Status: StatusDegraded, Reason: reason}
}

// IsDegraded reports whether the fallback was used.
func (o Outcome) IsDegraded() bool {
	return o.Status == StatusDegraded
}

// Result describes one entry compile.
type Result struct {
	Entry    string
	Output   string
	Revision uint64
	CSS      Outcome
	JS       Outcome
	// Images counts the image references that were inlined or copied.
	Images   int
	Duration time.Duration
	// Stale is set when a newer build of the same output committed first and
	// this build's write was discarded.
	Stale bool
	Err   error
}

// Failed reports whether the entry's build failed.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// IsDegraded reports whether any best-effort stage fell back.
func (r *Result) IsDegraded() bool {
	return r.CSS.IsDegraded() || r.JS.IsDegraded()
}
