// Package telemetry aggregates per-window simulation statistics and writes
// them to CSV files and an optional run store.
package telemetry

import "github.com/pthm-cable/broth/sim"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for the current window
	births      int
	deaths      int
	plantsEaten int
	siphoned    float64
	evalOK      int
	evalFailed  int
	transitions int
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: seconds per tick.
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record accumulates one tick's events into the current window.
func (c *Collector) Record(ev sim.TickEvents) {
	c.births += ev.Births
	c.deaths += ev.Deaths
	c.plantsEaten += ev.PlantsEaten
	c.siphoned += ev.Siphoned
	c.evalOK += ev.EvalOK
	c.evalFailed += ev.EvalFailed
	c.transitions += ev.Transitions
}

// ShouldFlush returns true once enough ticks have passed to close the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the given world snapshot and resets the
// counters for the next window.
func (c *Collector) Flush(view sim.WorldView) WindowStats {
	var grazers, parasites int
	energies := make([]float64, 0, len(view.Creatures))
	ages := make([]float64, 0, len(view.Creatures))
	var ageMax float64
	for _, cv := range view.Creatures {
		if cv.Diet == "parasite" {
			parasites++
		} else {
			grazers++
		}
		energies = append(energies, cv.Energy)
		ages = append(ages, cv.Age)
		if cv.Age > ageMax {
			ageMax = cv.Age
		}
	}

	eMean, eStd, eP10, eP50, eP90 := ComputeDistribution(energies)
	aMean, _, _, _, _ := ComputeDistribution(ages)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   view.Tick,
		SimTimeSec:      float64(view.Tick) * c.dt,

		GrazerCount:   grazers,
		ParasiteCount: parasites,
		PlantCount:    len(view.Plants),

		Births:      c.births,
		Deaths:      c.deaths,
		PlantsEaten: c.plantsEaten,
		Siphoned:    c.siphoned,

		EvalOK:      c.evalOK,
		EvalFailed:  c.evalFailed,
		Transitions: c.transitions,

		EnergyMean: eMean,
		EnergyStd:  eStd,
		EnergyP10:  eP10,
		EnergyP50:  eP50,
		EnergyP90:  eP90,

		AgeMean: aMean,
		AgeMax:  ageMax,
	}

	c.windowStartTick = view.Tick
	c.births = 0
	c.deaths = 0
	c.plantsEaten = 0
	c.siphoned = 0
	c.evalOK = 0
	c.evalFailed = 0
	c.transitions = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
