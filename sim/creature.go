package sim

import (
	"math"

	"github.com/pthm-cable/broth/brain"
	"github.com/pthm-cable/broth/genome"
	"github.com/pthm-cable/broth/geo"
	"github.com/pthm-cable/broth/physics"
)

// Diet selects a creature's feeding behavior. The set is closed; update and
// sensing logic dispatch on it with an explicit switch.
type Diet uint8

const (
	// DietGrazer consumes plants within reach.
	DietGrazer Diet = iota
	// DietParasite siphons energy from the nearest other creature.
	DietParasite
)

func (d Diet) String() string {
	switch d {
	case DietGrazer:
		return "grazer"
	case DietParasite:
		return "parasite"
	default:
		return "unknown"
	}
}

// Creature is one mobile agent. Its movement comes from an external policy;
// the simulation owns its body, genome, and energy accounting. A creature
// killed during a tick stays in the collection until the tick's sweep.
type Creature struct {
	ID     int64
	Genome genome.Genome
	Body   *physics.Body
	Diet   Diet

	Energy float64 // bounded to [0, Genome.EnergyStorage()]
	Age    float64 // seconds alive

	// LastSensors is the most recent observation, sent to the decision
	// service at the start of the next tick. LastAction is the activation
	// set most recently applied to the body.
	LastSensors brain.Sensors
	LastAction  brain.JetForces

	ate     float64 // energy gained from plants this tick
	siphon  float64 // energy siphoned from hosts this tick
	drained float64 // energy lost to parasites this tick
	dead    bool
}

// Dead reports whether the creature was marked dead this tick.
func (c *Creature) Dead() bool { return c.dead }

// Storage returns the creature's maximum energy.
func (c *Creature) Storage() float64 { return c.Genome.EnergyStorage() }

// gainEnergy adds energy, clamped to storage.
func (c *Creature) gainEnergy(amount float64) {
	c.Energy = math.Min(c.Energy+amount, c.Storage())
}

// spendEnergy removes energy; the creature dies when it reaches zero.
func (c *Creature) spendEnergy(amount float64) {
	c.Energy -= amount
	if c.Energy <= 0 {
		c.Energy = 0
		c.dead = true
	}
}

// sense builds the creature's observation: nearest plant and nearest other
// creature in body-relative polar form, plus normalized energy. Targets
// beyond the sense range read as distance 1 with zero angle components.
func (s *Simulation) sense(c *Creature) brain.Sensors {
	obs := brain.Sensors{
		ID:                         c.ID,
		PlantNormalizedDistance:    1,
		CreatureNormalizedDistance: 1,
		Energy:                     c.Energy / c.Storage(),
	}
	rng := s.cfg.Sense.Range

	if plant := s.nearestPlant(c.Body.Pos, rng); plant != nil {
		d, sin, cos := s.polarTo(c, plant.Pos)
		obs.PlantNormalizedDistance = d / rng
		obs.PlantAngleSin = sin
		obs.PlantAngleCos = cos
	}
	if other := s.nearestCreature(c.Body.Pos, rng, c.ID); other != nil {
		d, sin, cos := s.polarTo(c, other.Body.Pos)
		obs.CreatureNormalizedDistance = d / rng
		obs.CreatureAngleSin = sin
		obs.CreatureAngleCos = cos
	}
	return obs
}

// polarTo returns the toroidal distance to target and the sine/cosine of
// the bearing relative to the creature's heading.
func (s *Simulation) polarTo(c *Creature, target geo.Vec2) (dist, sin, cos float64) {
	delta := geo.Delta(c.Body.Pos, target, s.cfg.World.Width, s.cfg.World.Height)
	dist = delta.Length()
	bearing := math.Atan2(delta.Y, delta.X) - c.Body.Heading
	return dist, math.Sin(bearing), math.Cos(bearing)
}

// advanceCreature applies the given action to the body, integrates, charges
// energy costs, and feeds per diet. Observation refresh and transition
// emission happen in emitTransition, after every creature has been advanced,
// so a creature drained dead by a parasite later in the pass still reports
// its death in this tick's batch.
func (s *Simulation) advanceCreature(c *Creature, action brain.JetForces, dt float64) {
	c.ate, c.siphon, c.drained = 0, 0, 0

	var act [physics.NumJets]float64
	copy(act[:], action.Vector())
	applied := c.Body.ApplyForces(act)
	c.Body.Step(dt)
	c.LastAction = action

	c.Age += dt
	c.spendEnergy(s.cfg.Energy.BaseCost*dt + s.cfg.Energy.JetCost*applied)

	if !c.dead {
		switch c.Diet {
		case DietGrazer:
			s.graze(c)
		case DietParasite:
			s.siphonHost(c, dt)
		}
	}
}

// emitTransition refreshes the creature's observation and pairs the
// observation that was current when the action was applied with the
// resulting observation, reward, and final dead flag for this tick.
func (s *Simulation) emitTransition(c *Creature, prevObs brain.Sensors, energyBefore float64, action brain.JetForces) brain.Transition {
	nextObs := s.sense(c)
	reward := s.reward(c, energyBefore)
	c.LastSensors = nextObs

	return brain.Transition{
		ID:        c.ID,
		State:     prevObs.Vector(),
		Action:    action.Vector(),
		Reward:    reward,
		NextState: nextObs.Vector(),
		Done:      c.dead,
	}
}

// updateCreature advances one creature through one tick and returns its
// transition. applyActions uses the two halves separately so deaths caused
// by other creatures' updates are visible when transitions are emitted.
func (s *Simulation) updateCreature(c *Creature, action brain.JetForces, dt float64) brain.Transition {
	prevObs := c.LastSensors
	energyBefore := c.Energy
	s.advanceCreature(c, action, dt)
	return s.emitTransition(c, prevObs, energyBefore, action)
}

// graze consumes the nearest uneaten plant within reach.
func (s *Simulation) graze(c *Creature) {
	plant := s.nearestPlant(c.Body.Pos, s.cfg.Energy.EatRadius)
	if plant == nil {
		return
	}
	plant.eaten = true
	c.ate = s.cfg.Energy.PlantValue
	c.gainEnergy(c.ate)
}

// siphonHost drains energy from the nearest live creature within reach.
// The host loses the full drain; the parasite keeps only the configured
// efficiency fraction.
func (s *Simulation) siphonHost(c *Creature, dt float64) {
	host := s.nearestCreature(c.Body.Pos, s.cfg.Energy.ParasiteRadius, c.ID)
	if host == nil || host.dead {
		return
	}
	drain := math.Min(s.cfg.Energy.ParasiteDrain*dt, host.Energy)
	if drain <= 0 {
		return
	}
	host.drained += drain
	host.spendEnergy(drain)
	c.siphon = drain * s.cfg.Energy.ParasiteEfficiency
	c.gainEnergy(c.siphon)
}

// reward shapes the training signal from this tick's outcome: normalized
// energy delta, a bonus for eating, and a penalty on death.
func (s *Simulation) reward(c *Creature, energyBefore float64) float64 {
	r := s.cfg.Reward.EnergyScale * (c.Energy - energyBefore) / c.Storage()
	if c.ate > 0 {
		r += s.cfg.Reward.EatBonus
	}
	if c.dead {
		r -= s.cfg.Reward.DeathPenalty
	}
	return r
}
