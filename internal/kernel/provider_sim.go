// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package kernel

import (
	"context"
	"sync"

	"grimm.is/linkguard/internal/errors"
)

// SimSource replays a scripted sequence of snapshots.
// Each call to Snapshot returns the next step; once the script is exhausted
// the last step repeats. A step with Err set fails that call.
type SimSource struct {
	mu    sync.Mutex
	steps []SimStep
	pos   int
	calls int
}

// SimStep is one scripted Snapshot result.
type SimStep struct {
	Snapshot Snapshot
	Err      error
}

// NewSimSource returns a source that yields the given snapshots in order.
func NewSimSource(snaps ...Snapshot) *SimSource {
	s := &SimSource{}
	for _, snap := range snaps {
		s.steps = append(s.steps, SimStep{Snapshot: snap})
	}
	return s
}

// Push appends a snapshot to the script.
func (s *SimSource) Push(snap Snapshot) {
	s.mu.Lock()
	s.steps = append(s.steps, SimStep{Snapshot: snap})
	s.mu.Unlock()
}

// Fail appends a failing step to the script.
func (s *SimSource) Fail(err error) {
	s.mu.Lock()
	s.steps = append(s.steps, SimStep{Err: err})
	s.mu.Unlock()
}

// Calls returns how many times Snapshot has been called.
func (s *SimSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Snapshot returns the next scripted result.
func (s *SimSource) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.steps) == 0 {
		return nil, errors.New(errors.KindUnavailable, "simulated source has no snapshots")
	}

	step := s.steps[len(s.steps)-1]
	if s.pos < len(s.steps) {
		step = s.steps[s.pos]
		s.pos++
	}
	if step.Err != nil {
		return nil, step.Err
	}

	out := make(Snapshot, len(step.Snapshot))
	copy(out, step.Snapshot)
	return out, nil
}
