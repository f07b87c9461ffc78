package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pipeforge/forge/internal/dag"
	"github.com/pipeforge/forge/internal/display"
	"github.com/pipeforge/forge/internal/job"
	"github.com/pipeforge/forge/internal/job/resourcelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Settings configures one Executor.Run invocation.
type Settings struct {
	// MaxParallel bounds the number of jobs running concurrently. Zero or
	// negative means unbounded (a weight equal to the job count).
	MaxParallel int
	// TickInterval is how often the Display sink's Run method is called
	// while a run is in progress.
	TickInterval time.Duration
}

func (s Settings) tickInterval() time.Duration {
	if s.TickInterval <= 0 {
		return time.Second
	}
	return s.TickInterval
}

// Executor drives the main scheduling loop: it dispatches every
// Pending job the Dag reports, consumes Events off a shared channel as
// workers emit them, feeds terminal events back into the Dag to
// unlock or cancel successors, and reports snapshots to a Display
// sink — spec.md §4.6.
type Executor struct {
	runID           string
	log             *zap.SugaredLogger
	runner          job.CommandRunner
	envResolver     *job.EnvResolver
	sink            display.Sink
	settings        Settings
	resourceManager *resourcelimit.Manager
}

// Option configures optional Executor behavior.
type Option func(*Executor)

// WithResourceManager enables per-job cgroup memory limiting for plain
// (non-containerized) jobs that set Desc.MemoryLimitBytes — the
// resource-limited-plain-jobs supplement (SPEC_FULL.md §2.2). Without
// this option, a plain job's MemoryLimitBytes is silently unenforced.
func WithResourceManager(m *resourcelimit.Manager) Option {
	return func(e *Executor) { e.resourceManager = m }
}

func New(log *zap.SugaredLogger, runner job.CommandRunner, sink display.Sink, settings Settings, opts ...Option) *Executor {
	if sink == nil {
		sink = display.Noop{}
	}
	e := &Executor{
		runID:       uuid.NewString(),
		log:         log,
		runner:      runner,
		envResolver: job.NewEnvResolver(log),
		sink:        sink,
		settings:    settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) RunID() string { return e.runID }

// Run executes payload to completion and returns the final Tracker.
// It never forcefully interrupts an in-flight job: once ctx is
// cancelled, no new job is dispatched, but every already-running job
// is allowed to finish — spec.md §5, cancellation is cooperative and
// precedes dispatch only.
func (e *Executor) Run(ctx context.Context, payload job.Payload) (*Tracker, error) {
	log := e.log.With("run_id", e.runID)

	names := make([]string, 0, len(payload.Jobs))
	for _, desc := range payload.Jobs {
		names = append(names, desc.Name)
	}

	matrix, err := dag.NewConstraintMatrix(names, payload.Constraints)
	if err != nil {
		return nil, fmt.Errorf("building constraint matrix: %w", err)
	}
	graph := dag.New(payload.Jobs, matrix)

	resolvedEnv, err := e.envResolver.Resolve(e.runner, payload.Env)
	if err != nil {
		return nil, fmt.Errorf("resolving environment: %w", err)
	}

	jobsByName := make(map[string]*job.Job, len(payload.Jobs))
	for _, desc := range payload.Jobs {
		jobsByName[desc.Name] = job.New(desc, resolvedEnv)
	}

	tracker := NewTracker(names)
	if err := e.sink.SetUp(names); err != nil {
		e.sink.DisplayError(fmt.Errorf("display set up: %w", err))
	}

	weight := int64(e.settings.MaxParallel)
	if weight <= 0 {
		weight = int64(len(names))
	}
	if weight <= 0 {
		weight = 1
	}
	sem := semaphore.NewWeighted(weight)

	events := make(chan job.Event, len(names)*4+1)
	var wg sync.WaitGroup

	dispatch := func() {
		for _, name := range graph.ReadyJobs() {
			if err := sem.Acquire(ctx, 1); err != nil {
				log.Infow("dispatch stopped", "reason", err)
				return
			}
			if err := graph.MarkStarted(name); err != nil {
				sem.Release(1)
				log.Errorw("mark started failed", "job", name, "error", err)
				continue
			}

			j := jobsByName[name]
			wg.Add(1)
			go func(name string, j *job.Job) {
				defer wg.Done()
				defer sem.Release(1)
				runner := e.runnerFor(j.Desc())
				j.Start(runner, job.EmitterFunc(func(ev job.Event) {
					events <- ev
				}))
				if cr, ok := runner.(*cleanupRunner); ok {
					cr.cleanup()
				}
			}(name, j)
		}
	}

	dispatch()

	tick := time.NewTicker(e.settings.tickInterval())
	defer tick.Stop()

	for !graph.IsFullyTerminal() {
		select {
		case ev := <-events:
			tracker.Record(ev)
			if ev.Progress.IsTerminal() {
				cascaded := graph.RecordEvent(ev.JobName, ev.Progress.Success())
				for _, cev := range cascaded {
					tracker.Record(cev)
				}
				dispatch()
			}
		case <-tick.C:
			if err := e.sink.Run(e.snapshot(tracker)); err != nil {
				e.sink.DisplayError(fmt.Errorf("display run: %w", err))
			}
		case <-ctx.Done():
			log.Infow("run cancelled, waiting for in-flight jobs", "error", ctx.Err())
			wg.Wait()
			e.drain(events, tracker, graph)
			tracker.TryFinish()
			return tracker, ctx.Err()
		}
	}

	wg.Wait()
	e.drain(events, tracker, graph)
	tracker.TryFinish()

	if err := e.sink.TearDown(); err != nil {
		e.sink.DisplayError(fmt.Errorf("display tear down: %w", err))
	}
	if err := e.sink.Finish(e.snapshot(tracker)); err != nil {
		e.sink.DisplayError(fmt.Errorf("display finish: %w", err))
	}

	return tracker, nil
}

// drain consumes any events buffered between the last select
// iteration and workers winding down; non-blocking once the channel
// runs dry.
func (e *Executor) drain(events chan job.Event, tracker *Tracker, graph *dag.Dag) {
	for {
		select {
		case ev := <-events:
			tracker.Record(ev)
			if ev.Progress.IsTerminal() {
				for _, cev := range graph.RecordEvent(ev.JobName, ev.Progress.Success()) {
					tracker.Record(cev)
				}
			}
		default:
			return
		}
	}
}

// runnerFor returns the CommandRunner a job should execute through: a
// cgroup-scoped ShellRunner for a memory-limited plain job when a
// resource manager is configured, otherwise the Executor's shared
// runner. Containerized jobs always use the shared runner — their
// memory ceiling is expressed on the docker command line instead.
func (e *Executor) runnerFor(desc job.Desc) job.CommandRunner {
	if e.resourceManager == nil || desc.Containerized() || desc.MemoryLimitBytes <= 0 {
		return e.runner
	}

	fd, err := e.resourceManager.AddGroup(desc.Name, desc.MemoryLimitBytes)
	if err != nil {
		e.log.Errorw("cgroup add group failed, running unconstrained", "job", desc.Name, "error", err)
		return e.runner
	}
	return &cleanupRunner{
		CommandRunner: job.NewShellRunner(".", job.WithCGroupFD(fd)),
		cleanup: func() {
			if err := e.resourceManager.RemoveGroup(desc.Name); err != nil {
				e.log.Errorw("cgroup remove group failed", "job", desc.Name, "error", err)
			}
		},
	}
}

// cleanupRunner wraps a CommandRunner so the Executor can tear down
// its cgroup right after the owning Job.Start call returns.
type cleanupRunner struct {
	job.CommandRunner
	cleanup func()
}

func (e *Executor) snapshot(tracker *Tracker) display.Snapshot {
	names := tracker.JobNames()
	jobs := make([]display.JobSnapshot, 0, len(names))
	for _, name := range names {
		c := tracker.Collector(name)
		last, _ := c.Last()
		jobs = append(jobs, display.JobSnapshot{Name: name, Last: last, Failed: last.Failed()})
	}

	elapsed := time.Since(tracker.StartTime())
	if end, ok := tracker.EndTime(); ok {
		elapsed = end.Sub(tracker.StartTime())
	}

	return display.Snapshot{
		RunID:     e.runID,
		Elapsed:   elapsed,
		Jobs:      jobs,
		HasFailed: tracker.HasFailed(),
	}
}
