package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pipeforge/forge/internal/display"
	"github.com/pipeforge/forge/internal/job"
	"go.uber.org/zap"
)

// scriptedRunner resolves every command by exact string match; an
// unmatched command resolves to the zero Output, which is a Success --
// convenient for the env-resolver probe script, which this test never
// asserts on. It also records the order in which "run:"-prefixed
// commands were invoked, for tests asserting scheduling order.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[string]job.Output
	order   []string
}

func (r *scriptedRunner) Run(command string) job.Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.HasPrefix(command, "run:") {
		r.order = append(r.order, command)
	}
	return r.results[command]
}

func (r *scriptedRunner) Precondition(command string) job.Output {
	return r.Run(command)
}

func (r *scriptedRunner) callOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func indexOf(order []string, command string) int {
	for i, c := range order {
		if c == command {
			return i
		}
	}
	return -1
}

func testLog() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestExecutor_Run_FailurePropagatesCascade(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{results: map[string]job.Output{
		"run:a": job.JobErrorOutput("", "boom"),
		"run:c": job.Success("", ""),
	}}

	payload := job.Payload{
		Jobs: []job.Desc{
			{Name: "a", Script: []string{"run:a"}},
			{Name: "b", Script: []string{"run:b"}},
			{Name: "c", Script: []string{"run:c"}},
		},
		Constraints: []job.Edge{
			{Blocker: "a", Blocked: "b"},
		},
	}

	exec := New(testLog(), runner, display.Noop{}, Settings{MaxParallel: 2, TickInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker, err := exec.Run(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tracker.HasFailed() {
		t.Fatalf("expected HasFailed() true")
	}

	bLast, ok := tracker.Collector("b").Last()
	if !ok || bLast.Kind() != job.ProgressTerminated || bLast.Success() {
		t.Fatalf("expected b to end Terminated(false) via cancellation, got %v", bLast)
	}

	cLast, ok := tracker.Collector("c").Last()
	if !ok || cLast.Kind() != job.ProgressTerminated || !cLast.Success() {
		t.Fatalf("expected c to succeed independently, got %v", cLast)
	}
}

func TestExecutor_Run_AllSucceed(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{results: map[string]job.Output{
		"run:a": job.Success("", ""),
		"run:b": job.Success("", ""),
	}}

	payload := job.Payload{
		Jobs: []job.Desc{
			{Name: "a", Script: []string{"run:a"}},
			{Name: "b", Script: []string{"run:b"}},
		},
		Constraints: []job.Edge{
			{Blocker: "a", Blocked: "b"},
		},
	}

	exec := New(testLog(), runner, display.Noop{}, Settings{})

	tracker, err := exec.Run(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracker.HasFailed() {
		t.Fatalf("expected HasFailed() false")
	}
	if _, ok := tracker.EndTime(); !ok {
		t.Fatalf("expected an end time once the run completes")
	}
}

func TestExecutor_Run_DiamondOrdering(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{results: map[string]job.Output{
		"run:b1": job.Success("", ""),
		"run:b2": job.Success("", ""),
		"run:t1": job.Success("", ""),
		"run:t2": job.Success("", ""),
		"run:d":  job.Success("", ""),
	}}

	payload := job.Payload{
		Jobs: []job.Desc{
			{Name: "b1", Script: []string{"run:b1"}},
			{Name: "b2", Script: []string{"run:b2"}},
			{Name: "t1", Script: []string{"run:t1"}},
			{Name: "t2", Script: []string{"run:t2"}},
			{Name: "d", Script: []string{"run:d"}},
		},
		Constraints: []job.Edge{
			{Blocker: "b1", Blocked: "t1"},
			{Blocker: "b1", Blocked: "t2"},
			{Blocker: "b2", Blocked: "t1"},
			{Blocker: "b2", Blocked: "t2"},
			{Blocker: "t1", Blocked: "d"},
			{Blocker: "t2", Blocked: "d"},
		},
	}

	exec := New(testLog(), runner, display.Noop{}, Settings{MaxParallel: 4, TickInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracker, err := exec.Run(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracker.HasFailed() {
		t.Fatalf("expected HasFailed() false")
	}

	order := runner.callOrder()
	b1i, b2i := indexOf(order, "run:b1"), indexOf(order, "run:b2")
	t1i, t2i := indexOf(order, "run:t1"), indexOf(order, "run:t2")
	di := indexOf(order, "run:d")

	if t1i < b1i || t1i < b2i {
		t.Fatalf("t1 ran before both build jobs completed, order=%v", order)
	}
	if t2i < b1i || t2i < b2i {
		t.Fatalf("t2 ran before both build jobs completed, order=%v", order)
	}
	if di < t1i || di < t2i {
		t.Fatalf("d ran before both test jobs completed, order=%v", order)
	}

	for _, name := range []string{"b1", "b2", "t1", "t2", "d"} {
		last, ok := tracker.Collector(name).Last()
		if !ok || last.Kind() != job.ProgressTerminated || !last.Success() {
			t.Fatalf("expected %s to end Terminated(true), got %v", name, last)
		}
	}
}

func TestExecutor_Run_InvalidConstraintsReturnsError(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{results: map[string]job.Output{}}
	payload := job.Payload{
		Jobs: []job.Desc{
			{Name: "a", Script: []string{"run:a"}},
		},
		Constraints: []job.Edge{
			{Blocker: "a", Blocked: "a"},
		},
	}

	exec := New(testLog(), runner, display.Noop{}, Settings{})
	if _, err := exec.Run(context.Background(), payload); err == nil {
		t.Fatalf("expected an error for a self-blocking constraint")
	}
}
