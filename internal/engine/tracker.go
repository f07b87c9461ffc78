// Package engine drives the concurrent execution loop: it dispatches
// ready jobs, consumes their progress events, updates the Dag, and
// forwards snapshots to a Display sink — spec.md §4.6/§4.7.
package engine

import (
	"time"

	"github.com/pipeforge/forge/internal/job"
)

// Collector is a job's append-only Progress sequence. Its last element
// is the current observable state; nothing is ever removed or
// rewritten.
type Collector struct {
	progresses []job.Progress
}

func (c *Collector) push(p job.Progress) {
	c.progresses = append(c.progresses, p)
}

func (c *Collector) Progresses() []job.Progress {
	out := make([]job.Progress, len(c.progresses))
	copy(out, c.progresses)
	return out
}

func (c *Collector) Last() (job.Progress, bool) {
	if len(c.progresses) == 0 {
		return job.Progress{}, false
	}
	return c.progresses[len(c.progresses)-1], true
}

func (c *Collector) isTerminal() bool {
	last, ok := c.Last()
	return ok && last.IsTerminal()
}

// Tracker accumulates progress per job, tracks run timing, and
// maintains a monotonic has-failed flag. It is owned and mutated
// exclusively by the Executor goroutine — spec.md §5: "ProgressTracker
// is owned by the Executor."
type Tracker struct {
	startTime time.Time
	endTime   *time.Time
	states    map[string]*Collector
	order     []string
	hasFailed bool
}

func NewTracker(jobNames []string) *Tracker {
	t := &Tracker{
		startTime: time.Now(),
		states:    make(map[string]*Collector, len(jobNames)),
	}
	for _, name := range jobNames {
		t.states[name] = &Collector{}
		t.order = append(t.order, name)
	}
	return t
}

// Record appends e's Progress to its job's Collector and folds e's
// failure status into the monotonic has-failed flag.
func (t *Tracker) Record(e job.Event) {
	t.hasFailed = t.hasFailed || e.Failed()
	c, ok := t.states[e.JobName]
	if !ok {
		c = &Collector{}
		t.states[e.JobName] = c
		t.order = append(t.order, e.JobName)
	}
	c.push(e.Progress)
}

func (t *Tracker) HasFailed() bool { return t.hasFailed }
func (t *Tracker) StartTime() time.Time { return t.startTime }
func (t *Tracker) EndTime() (time.Time, bool) {
	if t.endTime == nil {
		return time.Time{}, false
	}
	return *t.endTime, true
}

// Collector returns the named job's Collector, or nil if unknown.
func (t *Tracker) Collector(jobName string) *Collector {
	return t.states[jobName]
}

// JobNames returns every job name the tracker has seen, in insertion order.
func (t *Tracker) JobNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// TryFinish sets the end time the first time every job's last recorded
// Progress is terminal, and reports whether the run is finished.
func (t *Tracker) TryFinish() bool {
	if t.endTime != nil {
		return true
	}
	for _, name := range t.order {
		if !t.states[name].isTerminal() {
			return false
		}
	}
	now := time.Now()
	t.endTime = &now
	return true
}

// LongestJobNameSize returns the length of the longest job name the
// tracker knows about, for display-column alignment.
func (t *Tracker) LongestJobNameSize() int {
	longest := 0
	for _, name := range t.order {
		if len(name) > longest {
			longest = len(name)
		}
	}
	return longest
}
