package telemetry

import (
	"testing"

	"github.com/pthm-cable/broth/sim"
)

func TestLifetimeTrackerFinalizesDisappeared(t *testing.T) {
	lt := NewLifetimeTracker()

	lt.Observe(sim.WorldView{Tick: 10, Creatures: []sim.CreatureView{
		{ID: 1, Diet: "grazer", Energy: 40, Age: 0.5},
		{ID: 2, Diet: "parasite", Energy: 20, Age: 0.5},
	}})
	lt.Observe(sim.WorldView{Tick: 20, Creatures: []sim.CreatureView{
		{ID: 1, Diet: "grazer", Energy: 70, Age: 1.0},
	}})

	if lt.LiveCount() != 1 {
		t.Errorf("live count = %d, want 1", lt.LiveCount())
	}
	done := lt.Completed()
	if len(done) != 1 {
		t.Fatalf("completed = %d lifetimes, want 1", len(done))
	}
	if done[0].ID != 2 || done[0].Diet != "parasite" || done[0].BirthTick != 10 {
		t.Errorf("finalized lifetime mismatch: %+v", done[0])
	}

	// Buffer drains on read.
	if len(lt.Completed()) != 0 {
		t.Error("Completed did not clear the buffer")
	}
}

func TestLifetimeTrackerTracksPeakEnergy(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Observe(sim.WorldView{Tick: 1, Creatures: []sim.CreatureView{{ID: 1, Energy: 50, Age: 0.1}}})
	lt.Observe(sim.WorldView{Tick: 2, Creatures: []sim.CreatureView{{ID: 1, Energy: 90, Age: 0.2}}})
	lt.Observe(sim.WorldView{Tick: 3, Creatures: []sim.CreatureView{{ID: 1, Energy: 30, Age: 0.3}}})
	lt.Observe(sim.WorldView{Tick: 4, Creatures: nil})

	done := lt.Completed()
	if len(done) != 1 {
		t.Fatalf("completed = %d lifetimes, want 1", len(done))
	}
	if done[0].PeakEnergy != 90 {
		t.Errorf("peak energy = %g, want 90", done[0].PeakEnergy)
	}
	if done[0].SurvivalTimeSec != 0.3 {
		t.Errorf("survival = %g, want 0.3", done[0].SurvivalTimeSec)
	}
}
