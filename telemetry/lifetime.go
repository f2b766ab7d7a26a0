package telemetry

import "github.com/pthm-cable/broth/sim"

// LifetimeStats tracks one creature's statistics over its lifetime.
type LifetimeStats struct {
	ID              int64
	Diet            string
	BirthTick       int64
	SurvivalTimeSec float64
	PeakEnergy      float64
}

// LifetimeTracker accumulates per-creature lifetime statistics from world
// snapshots. A creature that disappears between snapshots is finalized and
// made available through Completed.
type LifetimeTracker struct {
	live      map[int64]*LifetimeStats
	completed []LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		live: make(map[int64]*LifetimeStats),
	}
}

// Observe updates lifetime statistics from a world snapshot. Creatures seen
// for the first time are registered; creatures absent since the previous
// snapshot are finalized.
func (lt *LifetimeTracker) Observe(view sim.WorldView) {
	seen := make(map[int64]bool, len(view.Creatures))
	for _, cv := range view.Creatures {
		seen[cv.ID] = true
		st := lt.live[cv.ID]
		if st == nil {
			st = &LifetimeStats{ID: cv.ID, Diet: cv.Diet, BirthTick: view.Tick}
			lt.live[cv.ID] = st
		}
		st.SurvivalTimeSec = cv.Age
		if cv.Energy > st.PeakEnergy {
			st.PeakEnergy = cv.Energy
		}
	}
	for id, st := range lt.live {
		if !seen[id] {
			lt.completed = append(lt.completed, *st)
			delete(lt.live, id)
		}
	}
}

// Completed returns lifetimes finalized since the last call and clears the
// buffer.
func (lt *LifetimeTracker) Completed() []LifetimeStats {
	out := lt.completed
	lt.completed = nil
	return out
}

// LiveCount returns how many creatures are currently tracked.
func (lt *LifetimeTracker) LiveCount() int {
	return len(lt.live)
}
