package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/broth/geo"
)

func TestSenseDefaultsWithNoTargets(t *testing.T) {
	s := testSim(t, testConfig(), &fakeService{})
	rng := rand.New(rand.NewSource(3))
	c := s.SpawnCreature(testGenome(rng), geo.Vec2{X: 50, Y: 50}, DietGrazer)
	c.Energy = 40

	s.rebuildGrids()
	obs := s.sense(c)

	if obs.PlantNormalizedDistance != 1 || obs.CreatureNormalizedDistance != 1 {
		t.Errorf("empty world distances = %g, %g; want 1, 1",
			obs.PlantNormalizedDistance, obs.CreatureNormalizedDistance)
	}
	if obs.PlantAngleSin != 0 || obs.PlantAngleCos != 0 {
		t.Errorf("empty world plant angles = %g, %g; want 0, 0", obs.PlantAngleSin, obs.PlantAngleCos)
	}
	if obs.Energy != 0.4 {
		t.Errorf("normalized energy = %g, want 0.4", obs.Energy)
	}
}

func TestSensePlantAheadReadsZeroBearing(t *testing.T) {
	s := testSim(t, testConfig(), &fakeService{})
	rng := rand.New(rand.NewSource(3))
	c := s.SpawnCreature(testGenome(rng), geo.Vec2{X: 100, Y: 100}, DietGrazer)
	c.Body.Heading = 0
	s.spawnPlant(geo.Vec2{X: 130, Y: 100}) // 30 units dead ahead

	s.rebuildGrids()
	obs := s.sense(c)

	want := 30.0 / s.cfg.Sense.Range
	if math.Abs(obs.PlantNormalizedDistance-want) > 1e-12 {
		t.Errorf("plant distance = %g, want %g", obs.PlantNormalizedDistance, want)
	}
	if math.Abs(obs.PlantAngleSin) > 1e-12 || math.Abs(obs.PlantAngleCos-1) > 1e-12 {
		t.Errorf("bearing sin/cos = %g, %g; want 0, 1", obs.PlantAngleSin, obs.PlantAngleCos)
	}
}

func TestSenseFindsNearestAcrossWorldEdge(t *testing.T) {
	s := testSim(t, testConfig(), &fakeService{})
	rng := rand.New(rand.NewSource(3))
	// Near the left edge of an 800-wide world.
	c := s.SpawnCreature(testGenome(rng), geo.Vec2{X: 5, Y: 300}, DietGrazer)
	s.spawnPlant(geo.Vec2{X: 795, Y: 300}) // 10 units away through the wrap
	s.spawnPlant(geo.Vec2{X: 100, Y: 300}) // 95 units away directly

	s.rebuildGrids()
	obs := s.sense(c)

	want := 10.0 / s.cfg.Sense.Range
	if math.Abs(obs.PlantNormalizedDistance-want) > 1e-12 {
		t.Errorf("plant distance = %g, want wrapped %g", obs.PlantNormalizedDistance, want)
	}
}

func TestSenseExcludesSelfFromCreatureChannel(t *testing.T) {
	s := testSim(t, testConfig(), &fakeService{})
	rng := rand.New(rand.NewSource(3))
	c := s.SpawnCreature(testGenome(rng), geo.Vec2{X: 400, Y: 300}, DietParasite)

	s.rebuildGrids()
	obs := s.sense(c)

	if obs.CreatureNormalizedDistance != 1 {
		t.Errorf("lone creature sensed something at %g, want 1 (nothing)", obs.CreatureNormalizedDistance)
	}
}

func TestDietStrings(t *testing.T) {
	if DietGrazer.String() != "grazer" || DietParasite.String() != "parasite" {
		t.Errorf("diet strings = %q, %q", DietGrazer.String(), DietParasite.String())
	}
}
