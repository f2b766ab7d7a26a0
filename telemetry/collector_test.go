package telemetry

import (
	"testing"

	"github.com/pthm-cable/broth/sim"
)

func testView(tick int64) sim.WorldView {
	return sim.WorldView{
		Tick:   tick,
		Width:  800,
		Height: 600,
		Creatures: []sim.CreatureView{
			{ID: 1, Diet: "grazer", Energy: 40, Age: 10},
			{ID: 2, Diet: "grazer", Energy: 60, Age: 30},
			{ID: 3, Diet: "parasite", Energy: 20, Age: 5},
		},
		Plants: []sim.PlantView{{ID: 4}, {ID: 5}},
	}
}

func TestCollectorFlushAggregatesWindow(t *testing.T) {
	c := NewCollector(5.0, 0.05) // 100 ticks per window
	if c.WindowDurationTicks() != 100 {
		t.Fatalf("window ticks = %d, want 100", c.WindowDurationTicks())
	}

	c.Record(sim.TickEvents{Births: 1, PlantsEaten: 2, Siphoned: 0.5, Transitions: 3, EvalOK: 1})
	c.Record(sim.TickEvents{Deaths: 2, Siphoned: 0.25, Transitions: 3, EvalFailed: 1})

	if c.ShouldFlush(50) {
		t.Error("flushed before the window elapsed")
	}
	if !c.ShouldFlush(100) {
		t.Error("did not flush after the window elapsed")
	}

	stats := c.Flush(testView(100))

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 100 {
		t.Errorf("window = [%d, %d], want [0, 100]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.SimTimeSec != 5.0 {
		t.Errorf("sim time = %g, want 5.0", stats.SimTimeSec)
	}
	if stats.GrazerCount != 2 || stats.ParasiteCount != 1 || stats.PlantCount != 2 {
		t.Errorf("counts = %d grazers, %d parasites, %d plants; want 2, 1, 2",
			stats.GrazerCount, stats.ParasiteCount, stats.PlantCount)
	}
	if stats.Births != 1 || stats.Deaths != 2 || stats.PlantsEaten != 2 {
		t.Errorf("events = %d births, %d deaths, %d eaten; want 1, 2, 2",
			stats.Births, stats.Deaths, stats.PlantsEaten)
	}
	if stats.Siphoned != 0.75 {
		t.Errorf("siphoned = %g, want 0.75", stats.Siphoned)
	}
	if stats.EvalOK != 1 || stats.EvalFailed != 1 || stats.Transitions != 6 {
		t.Errorf("service stats = %d ok, %d failed, %d transitions; want 1, 1, 6",
			stats.EvalOK, stats.EvalFailed, stats.Transitions)
	}
	if stats.EnergyMean != 40 {
		t.Errorf("energy mean = %g, want 40", stats.EnergyMean)
	}
	if stats.AgeMax != 30 {
		t.Errorf("age max = %g, want 30", stats.AgeMax)
	}
}

func TestCollectorFlushResetsCounters(t *testing.T) {
	c := NewCollector(1.0, 0.05)
	c.Record(sim.TickEvents{Births: 3, Deaths: 1, Transitions: 9})
	c.Flush(testView(20))

	stats := c.Flush(testView(40))
	if stats.Births != 0 || stats.Deaths != 0 || stats.Transitions != 0 {
		t.Errorf("counters survived flush: %+v", stats)
	}
	if stats.WindowStartTick != 20 {
		t.Errorf("window start = %d, want 20", stats.WindowStartTick)
	}
}

func TestCollectorMinimumWindowOneTick(t *testing.T) {
	c := NewCollector(0.001, 0.05)
	if c.WindowDurationTicks() != 1 {
		t.Errorf("window ticks = %d, want clamped to 1", c.WindowDurationTicks())
	}
}
