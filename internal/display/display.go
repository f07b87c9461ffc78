// Package display defines the external presentation contract the
// engine drives — spec.md §6. The engine never renders anything
// itself; it only calls a Sink at the points the contract specifies.
package display

import (
	"time"

	"github.com/pipeforge/forge/internal/job"
)

// JobSnapshot is one job's current observable state at the moment a
// Snapshot was taken.
type JobSnapshot struct {
	Name   string
	Last   job.Progress
	Failed bool
}

// Snapshot is an immutable view of a run, handed to a Sink. It carries
// no behavior — a Sink is free to read it and discard it.
type Snapshot struct {
	RunID     string
	Elapsed   time.Duration
	Jobs      []JobSnapshot
	HasFailed bool
}

// Sink is the external collaborator a run reports to. Terminal
// widgets, log lines, or anything else that renders progress to a
// human implements this; forge's core never depends on a concrete
// rendering technology.
type Sink interface {
	// SetUp is called once, before any job starts, with the full set of
	// job names the run will drive.
	SetUp(jobNames []string) error
	// Run is called periodically (spec.md §6's configured tick interval)
	// while the run is in progress.
	Run(snap Snapshot) error
	// TearDown is called once the run reaches its terminal state, before
	// Finish.
	TearDown() error
	// Finish is called once, after TearDown, with the run's final snapshot.
	Finish(snap Snapshot) error
	// DisplayError reports an error the Sink itself cannot recover from.
	// It is advisory; the engine does not change behavior based on it.
	DisplayError(err error)
}
