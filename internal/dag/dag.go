package dag

import (
	"fmt"
	"sort"

	"github.com/pipeforge/forge/internal/job"
)

// watcher is the Dag's arena-owned record for one job: a plain-string
// cross-reference into the ConstraintMatrix rather than the source's
// cyclic job<->watcher pointers (see DESIGN.md on the arena-with-names
// substitution).
type watcher struct {
	name             string
	state            JobState
	remainingBlocker map[string]struct{} // shrinks to empty as direct blockers terminate successfully
}

// Dag is the per-job scheduler state built once per run from a
// ConstraintMatrix. It is owned and mutated exclusively by the
// Executor goroutine — no locking is needed here, by design (spec.md
// §5: "Dag is owned by the Executor; mutated only on the executor
// thread").
type Dag struct {
	matrix   *ConstraintMatrix
	watchers map[string]*watcher
	order    []string // sorted job names, for deterministic ReadyJobs
}

// New seeds one watcher per job: Pending if it has no direct blockers,
// Blocked otherwise.
func New(descs []job.Desc, matrix *ConstraintMatrix) *Dag {
	d := &Dag{
		matrix:   matrix,
		watchers: make(map[string]*watcher, len(descs)),
	}
	for _, desc := range descs {
		d.order = append(d.order, desc.Name)
	}
	sort.Strings(d.order)

	for _, name := range d.order {
		blockers := matrix.DirectBlockers(name)
		remaining := make(map[string]struct{}, len(blockers))
		for _, b := range blockers {
			remaining[b] = struct{}{}
		}
		state := Pending()
		if len(remaining) > 0 {
			state = BlockedState()
		}
		d.watchers[name] = &watcher{name: name, state: state, remainingBlocker: remaining}
	}
	return d
}

// ReadyJobs returns every Pending watcher's name, sorted ascending for
// deterministic dispatch order.
func (d *Dag) ReadyJobs() []string {
	var ready []string
	for _, name := range d.order {
		if d.watchers[name].state.Kind == StatePending {
			ready = append(ready, name)
		}
	}
	return ready
}

// State returns the current JobState for name.
func (d *Dag) State(name string) JobState {
	return d.watchers[name].state
}

// DirectBlockers returns, for a still-Blocked job, the blockers it is
// still waiting on.
func (d *Dag) DirectBlockers(name string) []string {
	w := d.watchers[name]
	var out []string
	for b := range w.remainingBlocker {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// MarkStarted transitions name from Pending to Started. It is an
// invariant violation (programmer error) to call this on a watcher
// that isn't Pending.
func (d *Dag) MarkStarted(name string) error {
	w, ok := d.watchers[name]
	if !ok {
		return fmt.Errorf("mark started: unknown job %q", name)
	}
	if w.state.Kind != StatePending {
		return fmt.Errorf("mark started: job %q is not Pending (state=%s)", name, w.state)
	}
	w.state = Started()
	return nil
}

// RecordEvent records a job's terminal result, unlocking successors on
// success or cancelling every transitively-reachable non-terminal
// successor on failure. It returns the synthetic Cancelled+Terminated
// events the cancellation cascade produced, in job order, for the
// caller to forward into the tracker.
//
// Calling this with name not currently Started is a programmer error
// and panics — spec.md §4.5 step 1 and §7 taxonomy item 4.
func (d *Dag) RecordEvent(name string, success bool) []job.Event {
	w, ok := d.watchers[name]
	if !ok {
		panic(fmt.Sprintf("dag: record_event for unknown job %q", name))
	}
	if w.state.Kind != StateStarted {
		panic(fmt.Sprintf("dag: record_event for job %q not in Started state (state=%s)", name, w.state))
	}

	w.state = TerminatedState(success)

	if success {
		d.unlockSuccessors(name)
		return nil
	}
	return d.cancelSuccessors(name)
}

func (d *Dag) unlockSuccessors(name string) {
	for _, blocked := range d.matrix.DirectBlocked(name) {
		w, ok := d.watchers[blocked]
		if !ok || w.state.Kind != StateBlocked {
			continue
		}
		delete(w.remainingBlocker, name)
		if len(w.remainingBlocker) == 0 {
			w.state = Pending()
		}
	}
}

func (d *Dag) cancelSuccessors(name string) []job.Event {
	var events []job.Event
	for _, successor := range d.matrix.Blocking(name) {
		w, ok := d.watchers[successor]
		if !ok || w.state.IsTerminal() {
			continue
		}
		w.state = CancelledState(name)
		events = append(events, job.NewEvent(successor, job.Cancelled()))
		events = append(events, job.NewEvent(successor, job.Terminated(false)))
	}
	return events
}

// IsFullyTerminal reports whether every watcher has reached a terminal
// state (Terminated or Cancelled).
func (d *Dag) IsFullyTerminal() bool {
	for _, name := range d.order {
		if !d.watchers[name].state.IsTerminal() {
			return false
		}
	}
	return true
}

// JobNames returns every job name this Dag is watching, sorted.
func (d *Dag) JobNames() []string {
	out := append([]string(nil), d.order...)
	return out
}
