// Package dag builds and validates the constraint graph over jobs, and
// drives the per-job scheduling state machine on top of it — the
// ConstraintMatrix and Dag components from spec.md §4.4/§4.5.
package dag

import (
	"sort"

	"github.com/pipeforge/forge/internal/job"
	"go.uber.org/multierr"
)

type cellKind int

const (
	cellFree cellKind = iota
	cellIndifferent
	cellBlocked
)

type cell struct {
	kind  cellKind
	count int
}

// ConstraintMatrix is the immutable, validated constraint graph over a
// fixed job set. Once constructed it is safe to share read-only across
// goroutines.
type ConstraintMatrix struct {
	jobNames  []string // sorted, for deterministic iteration
	matrix    map[[2]string]*cell
	blocks    map[string]map[string]struct{} // blocker -> set(blocked)
	blockedBy map[string]map[string]struct{} // blocked -> set(blocker)
}

// NewConstraintMatrix validates edges against jobNames and builds a
// ConstraintMatrix. Every self-block and unknown-job violation across
// the whole edge set is collected and returned together (via multierr)
// before cycle detection ever runs — cycle detection requires a matrix
// built only from already-valid edges.
func NewConstraintMatrix(jobNames []string, edges []job.Edge) (*ConstraintMatrix, error) {
	sorted := append([]string(nil), jobNames...)
	sort.Strings(sorted)

	known := make(map[string]struct{}, len(sorted))
	for _, name := range sorted {
		known[name] = struct{}{}
	}

	matrix := make(map[[2]string]*cell, len(sorted)*len(sorted))
	blocks := make(map[string]map[string]struct{}, len(sorted))
	blockedBy := make(map[string]map[string]struct{}, len(sorted))
	for _, outer := range sorted {
		for _, inner := range sorted {
			kind := cellIndifferent
			if outer == inner {
				kind = cellFree
			}
			matrix[[2]string{outer, inner}] = &cell{kind: kind}
		}
		blocks[outer] = make(map[string]struct{})
		blockedBy[outer] = make(map[string]struct{})
	}

	var errs error
	for _, e := range edges {
		if e.Blocker == e.Blocked {
			errs = multierr.Append(errs, &SelfBlockError{Job: e.Blocker})
			continue
		}
		if _, ok := known[e.Blocker]; !ok {
			errs = multierr.Append(errs, &UnknownJobError{Job: e.Blocker})
			continue
		}
		if _, ok := known[e.Blocked]; !ok {
			errs = multierr.Append(errs, &UnknownJobError{Job: e.Blocked})
			continue
		}
	}
	if errs != nil {
		return nil, errs
	}

	for _, e := range edges {
		key := [2]string{e.Blocker, e.Blocked}
		c := matrix[key]
		switch c.kind {
		case cellFree:
			// unreachable: self-block edges were filtered out above.
			return nil, &SelfBlockError{Job: e.Blocker}
		case cellIndifferent:
			c.kind = cellBlocked
			c.count = 1
		case cellBlocked:
			c.count++
		}

		blocks[e.Blocker][e.Blocked] = struct{}{}
		blockedBy[e.Blocked][e.Blocker] = struct{}{}
	}

	cm := &ConstraintMatrix{
		jobNames:  sorted,
		matrix:    matrix,
		blocks:    blocks,
		blockedBy: blockedBy,
	}

	if job, ok := cm.findCycle(); ok {
		return nil, &CycleError{Job: job}
	}

	return cm, nil
}

// findCycle runs Kahn's algorithm over the blocks adjacency: if every
// job can be peeled off with in-degree zero, the graph is acyclic.
// Otherwise, one of the jobs still stuck with positive in-degree when
// the algorithm stalls is returned.
func (m *ConstraintMatrix) findCycle() (string, bool) {
	inDegree := make(map[string]int, len(m.jobNames))
	for _, name := range m.jobNames {
		inDegree[name] = len(m.blockedBy[name])
	}

	var queue []string
	for _, name := range m.jobNames {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	visited := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		name := queue[0]
		queue = queue[1:]
		visited++

		var nextNames []string
		for blocked := range m.blocks[name] {
			nextNames = append(nextNames, blocked)
		}
		sort.Strings(nextNames)
		for _, blocked := range nextNames {
			inDegree[blocked]--
			if inDegree[blocked] == 0 {
				queue = append(queue, blocked)
			}
		}
	}

	if visited == len(m.jobNames) {
		return "", false
	}

	for _, name := range m.jobNames {
		if inDegree[name] > 0 {
			return name, true
		}
	}
	return "", false
}

// Blocking returns every job transitively blocked by name — i.e. name
// must terminate before any of them can start, directly or through a
// chain of other jobs. Iteration order is deterministic (ascending by
// name).
func (m *ConstraintMatrix) Blocking(name string) []string {
	return m.transitiveClosure(name, m.blocks)
}

// BlockedBy returns every job that transitively blocks name. Iteration
// order is deterministic (ascending by name).
func (m *ConstraintMatrix) BlockedBy(name string) []string {
	return m.transitiveClosure(name, m.blockedBy)
}

func (m *ConstraintMatrix) transitiveClosure(name string, adjacency map[string]map[string]struct{}) []string {
	visited := make(map[string]struct{})
	var walk func(string)
	walk = func(current string) {
		var next []string
		for n := range adjacency[current] {
			next = append(next, n)
		}
		sort.Strings(next)
		for _, n := range next {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			walk(n)
		}
	}
	walk(name)

	result := make([]string, 0, len(visited))
	for n := range visited {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// DirectBlockers returns the immediate (non-transitive) blockers of name.
func (m *ConstraintMatrix) DirectBlockers(name string) []string {
	var result []string
	for n := range m.blockedBy[name] {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// DirectBlocked returns the jobs name immediately (non-transitively) blocks.
func (m *ConstraintMatrix) DirectBlocked(name string) []string {
	var result []string
	for n := range m.blocks[name] {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}
