// Package sim contains the simulation orchestrator: entity collections,
// per-tick physics and energy updates, asynchronous policy evaluation and
// training, reproduction, and deferred entity cleanup.
package sim

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pthm-cable/broth/brain"
	"github.com/pthm-cable/broth/config"
	"github.com/pthm-cable/broth/genome"
	"github.com/pthm-cable/broth/geo"
	"github.com/pthm-cable/broth/physics"
	"github.com/pthm-cable/broth/spatial"
)

// BrainService is the decision/training service the orchestrator talks to.
// *brain.Client implements it; tests substitute in-process fakes.
type BrainService interface {
	InitBrains(brains []brain.BrainInit) (map[int64]bool, error)
	EvaluateBrains(sensors []brain.Sensors) (map[int64]brain.JetForces, error)
	TrainBrains(transitions []brain.Transition) error
}

// actionMap is the published result of one policy evaluation. A new map is
// built per evaluation and swapped in atomically; readers copy from the
// snapshot they loaded and never see a map under mutation.
type actionMap = map[int64]brain.JetForces

// task is a handle on one background network call. Every launched call is
// kept until its completion has been observed by the tick loop, so failures
// stay visible instead of vanishing into dropped goroutines.
type task struct {
	op   string
	done chan error // buffered; the goroutine sends exactly once
}

// Simulation owns the creature and plant collections and advances the world
// one fixed-dt tick at a time. Ticks never block on the network: policy
// evaluation runs in the background and the tick applies whatever action
// map was most recently published, however stale.
type Simulation struct {
	cfg *config.Config
	log *zap.Logger
	rng *rand.Rand
	svc BrainService

	creatures map[int64]*Creature
	plants    map[int64]*Plant
	nextID    int64

	creatureGrid *spatial.Grid[int64]
	plantGrid    *spatial.Grid[int64]

	// actions is the double buffer published by the evaluation goroutine
	// and read by the tick loop.
	actions  atomic.Pointer[actionMap]
	evalTask *task
	pending  []*task
	wg       sync.WaitGroup

	tick  int64
	timer PhaseTimer

	// scratch buffers reused across ticks
	queryScratch []int64
}

// PhaseTimer receives phase boundaries within a tick for performance
// accounting. Implementations must be cheap; the tick loop calls them
// unconditionally.
type PhaseTimer interface {
	StartPhase(name string)
}

// SetPhaseTimer installs an optional per-phase timer. Pass nil to disable.
func (s *Simulation) SetPhaseTimer(t PhaseTimer) { s.timer = t }

func (s *Simulation) phase(name string) {
	if s.timer != nil {
		s.timer.StartPhase(name)
	}
}

// New creates an empty simulation. Call Populate to spawn the founding
// population.
func New(cfg *config.Config, svc BrainService, rng *rand.Rand, log *zap.Logger) *Simulation {
	return &Simulation{
		cfg:          cfg,
		log:          log,
		rng:          rng,
		svc:          svc,
		creatures:    make(map[int64]*Creature),
		plants:       make(map[int64]*Plant),
		creatureGrid: spatial.NewGrid[int64](cfg.World.Width, cfg.World.Height, cfg.Sim.GridCellSize),
		plantGrid:    spatial.NewGrid[int64](cfg.World.Width, cfg.World.Height, cfg.Sim.GridCellSize),
	}
}

// Populate spawns the founding creatures and plants and registers the
// creatures' policies with the decision service in the background.
func (s *Simulation) Populate() {
	inits := make([]brain.BrainInit, 0, s.cfg.Population.Creatures)
	for i := 0; i < s.cfg.Population.Creatures; i++ {
		diet := DietGrazer
		if s.rng.Float64() < s.cfg.Population.ParasiteFraction {
			diet = DietParasite
		}
		c := s.spawnCreature(genome.New(s.rng), s.randomPos(), diet, -1)
		inits = append(inits, brain.BrainInit{ID: c.ID, Weights: c.Genome.Weights})
	}
	for i := 0; i < s.cfg.Population.Plants; i++ {
		s.spawnPlant(s.randomPos())
	}
	if len(inits) > 0 {
		s.launch("init", func() error {
			_, err := s.svc.InitBrains(inits)
			return err
		})
	}
}

// SpawnCreature adds a creature with the given genome, position, and diet
// and returns it. Initial energy is the configured fraction of storage.
func (s *Simulation) SpawnCreature(g genome.Genome, pos geo.Vec2, diet Diet) *Creature {
	return s.spawnCreature(g, pos, diet, -1)
}

// spawnCreature adds a creature. energy < 0 selects the configured default.
func (s *Simulation) spawnCreature(g genome.Genome, pos geo.Vec2, diet Diet, energy float64) *Creature {
	s.nextID++
	if energy < 0 {
		energy = g.EnergyStorage() * s.cfg.Energy.InitialFraction
	}
	body := physics.NewBody(pos, s.rng.Float64()*2*math.Pi, g.Mass(), g.Size(), g.Shape,
		s.cfg.World.Width, s.cfg.World.Height, s.physicsParams())
	c := &Creature{
		ID:     s.nextID,
		Genome: g,
		Body:   body,
		Diet:   diet,
		Energy: math.Min(energy, g.EnergyStorage()),
	}
	c.LastSensors = brain.Sensors{
		ID:                         c.ID,
		PlantNormalizedDistance:    1,
		CreatureNormalizedDistance: 1,
		Energy:                     c.Energy / c.Storage(),
	}
	s.creatures[c.ID] = c
	return c
}

// spawnPlant adds a plant at pos.
func (s *Simulation) spawnPlant(pos geo.Vec2) *Plant {
	s.nextID++
	p := &Plant{ID: s.nextID, Pos: geo.WrapVec(pos, s.cfg.World.Width, s.cfg.World.Height)}
	s.plants[p.ID] = p
	return p
}

func (s *Simulation) physicsParams() physics.Params {
	return physics.Params{
		JetForce:      s.cfg.Physics.JetForce,
		MinActivation: s.cfg.Physics.MinActivation,
		JetCooldown:   s.cfg.Physics.JetCooldown,
		LinearDrag:    s.cfg.Physics.LinearDrag,
		AngularDrag:   s.cfg.Physics.AngularDrag,
	}
}

func (s *Simulation) randomPos() geo.Vec2 {
	return geo.Vec2{X: s.rng.Float64() * s.cfg.World.Width, Y: s.rng.Float64() * s.cfg.World.Height}
}

// TickEvents summarizes what happened during one Step, for telemetry.
type TickEvents struct {
	Births      int
	Deaths      int
	PlantsEaten int
	Siphoned    float64 // total energy parasites kept from their hosts
	Transitions int     // shipped for training
	EvalOK      int     // evaluations observed completed this tick
	EvalFailed  int
}

// Step advances the world by one tick of cfg.Sim.DT seconds. Per tick:
// observe completed background calls, rebuild the spatial index, launch a
// policy evaluation in the background, apply the latest published actions
// to every creature, reproduce, disperse plant seeds, sweep the dead, and
// ship this tick's transitions for training without waiting for an
// acknowledgement.
func (s *Simulation) Step() TickEvents {
	dt := s.cfg.Sim.DT
	s.tick++
	var ev TickEvents

	s.phase("tasks")
	s.observeTasks(&ev)
	s.phase("spatial_grid")
	s.rebuildGrids()
	s.phase("tasks")
	s.launchEvaluate()

	s.phase("physics")
	transitions := s.applyActions(dt)
	for _, c := range s.creatures {
		ev.Siphoned += c.siphon
	}
	s.phase("lifecycle")
	ev.Births = s.reproduce()
	s.disperseSeeds()
	ev.Deaths, ev.PlantsEaten = s.sweep()

	if len(transitions) > 0 {
		ev.Transitions = len(transitions)
		s.launch("train", func() error {
			return s.svc.TrainBrains(transitions)
		})
	}
	return ev
}

// observeTasks drains completed background calls without blocking. Failed
// evaluations and training submissions are logged and dropped: the tick
// keeps running on stale actions, and a lost training batch is an accepted
// loss.
func (s *Simulation) observeTasks(ev *TickEvents) {
	if s.evalTask != nil {
		select {
		case err := <-s.evalTask.done:
			if err != nil {
				ev.EvalFailed++
				s.log.Warn("policy evaluation failed, reusing previous actions",
					zap.String("op", s.evalTask.op), zap.Error(err))
			} else {
				ev.EvalOK++
			}
			s.evalTask = nil
		default:
		}
	}

	kept := s.pending[:0]
	for _, t := range s.pending {
		select {
		case err := <-t.done:
			if err != nil {
				s.log.Warn("background call failed", zap.String("op", t.op), zap.Error(err))
			}
		default:
			kept = append(kept, t)
		}
	}
	s.pending = kept
}

// launch starts a tracked fire-and-forget background call.
func (s *Simulation) launch(op string, fn func() error) {
	t := &task{op: op, done: make(chan error, 1)}
	s.pending = append(s.pending, t)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t.done <- fn()
	}()
}

// launchEvaluate starts one background policy evaluation over every live
// creature's latest observation. At most one evaluation is in flight; if
// the previous one has not returned, this tick runs on the old action map.
func (s *Simulation) launchEvaluate() {
	if s.evalTask != nil || len(s.creatures) == 0 {
		return
	}
	batch := make([]brain.Sensors, 0, len(s.creatures))
	for _, c := range s.creatures {
		batch = append(batch, c.LastSensors)
	}
	t := &task{op: "evaluate", done: make(chan error, 1)}
	s.evalTask = t
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		results, err := s.svc.EvaluateBrains(batch)
		if err == nil {
			m := actionMap(results)
			s.actions.Store(&m)
		}
		t.done <- err
	}()
}

// applyActions runs the physics and energy update for every creature using
// the most recently published action map, and collects this tick's
// training transitions. Creatures with no published action yet coast on
// zero activations. Pre-tick state is snapshotted for every creature before
// any of them moves, and transitions are emitted only after the whole
// update pass: a host drained dead by a parasite updated after it still
// gets its full update and ships a terminal transition this tick.
func (s *Simulation) applyActions(dt float64) []brain.Transition {
	var current actionMap
	if p := s.actions.Load(); p != nil {
		current = *p
	}

	type staged struct {
		c            *Creature
		prevObs      brain.Sensors
		energyBefore float64
		action       brain.JetForces
	}
	updates := make([]staged, 0, len(s.creatures))
	for _, c := range s.creatures {
		updates = append(updates, staged{
			c:            c,
			prevObs:      c.LastSensors,
			energyBefore: c.Energy,
			action:       current[c.ID],
		})
	}
	for _, u := range updates {
		s.advanceCreature(u.c, u.action, dt)
	}

	transitions := make([]brain.Transition, 0, len(updates))
	for _, u := range updates {
		transitions = append(transitions, s.emitTransition(u.c, u.prevObs, u.energyBefore, u.action))
	}
	return transitions
}

// reproduce gives every sufficiently charged creature a stochastic chance
// to produce one offspring with a mutated genome, a share of the parent's
// energy, and a nearby position. Offspring policies are registered with the
// decision service in the background. Returns the number of births.
func (s *Simulation) reproduce() int {
	if len(s.creatures) >= s.cfg.Sim.MaxCreatures {
		return 0
	}
	type birth struct {
		g      genome.Genome
		pos    geo.Vec2
		diet   Diet
		energy float64
	}
	var births []birth
	for _, c := range s.creatures {
		if c.dead || c.Energy < c.Storage()*s.cfg.Reproduction.ThresholdFraction {
			continue
		}
		if s.rng.Float64() >= s.cfg.Reproduction.Probability {
			continue
		}
		if len(s.creatures)+len(births) >= s.cfg.Sim.MaxCreatures {
			break
		}

		child := c.Genome.Mutate(s.rng, s.cfg.Mutation.Rate)
		var childEnergy float64
		if s.cfg.Reproduction.SplitParentEnergy {
			childEnergy = c.Energy / 2
			c.Energy -= childEnergy
		} else {
			childEnergy = child.EnergyStorage() * s.cfg.Reproduction.ChildFraction
			c.spendEnergy(childEnergy)
		}
		births = append(births, birth{
			g:      child,
			pos:    c.Body.Pos.Add(s.randomOffset(s.cfg.Reproduction.SpawnOffset)),
			diet:   c.Diet,
			energy: childEnergy,
		})
	}

	// Spawning is deferred past the loop so a newborn is never visited in
	// the pass that created it and the cap check counts each birth once.
	inits := make([]brain.BrainInit, 0, len(births))
	for _, b := range births {
		nb := s.spawnCreature(b.g, b.pos, b.diet, b.energy)
		inits = append(inits, brain.BrainInit{ID: nb.ID, Weights: nb.Genome.Weights})
	}
	if len(inits) > 0 {
		s.launch("init", func() error {
			_, err := s.svc.InitBrains(inits)
			return err
		})
	}
	return len(births)
}

// disperseSeeds gives every plant a stochastic chance to seed a new plant
// nearby, up to the configured cap.
func (s *Simulation) disperseSeeds() {
	var seeds []geo.Vec2
	for _, p := range s.plants {
		if p.eaten {
			continue
		}
		if len(s.plants)+len(seeds) >= s.cfg.Plants.MaxPlants {
			break
		}
		if s.rng.Float64() < s.cfg.Plants.SeedChance {
			seeds = append(seeds, p.Pos.Add(s.randomOffset(s.cfg.Plants.SeedRadius)))
		}
	}
	for _, pos := range seeds {
		s.spawnPlant(pos)
	}
}

func (s *Simulation) randomOffset(max float64) geo.Vec2 {
	angle := s.rng.Float64() * 2 * math.Pi
	r := s.rng.Float64() * max
	return geo.Vec2{X: math.Cos(angle) * r, Y: math.Sin(angle) * r}
}

// sweep removes creatures marked dead and plants eaten during this tick.
// Removal is deferred to here so nothing mutates the collections while the
// update pass iterates them. Returns the number of deaths and eaten plants.
func (s *Simulation) sweep() (deaths, eaten int) {
	for id, c := range s.creatures {
		if c.dead {
			delete(s.creatures, id)
			deaths++
			s.log.Debug("creature died",
				zap.Int64("id", id), zap.Float64("age", c.Age), zap.String("diet", c.Diet.String()))
		}
	}
	for id, p := range s.plants {
		if p.eaten {
			delete(s.plants, id)
			eaten++
		}
	}
	return deaths, eaten
}

// rebuildGrids reindexes every entity by its current position.
func (s *Simulation) rebuildGrids() {
	cpos := make(map[int64]geo.Vec2, len(s.creatures))
	for id, c := range s.creatures {
		cpos[id] = c.Body.Pos
	}
	s.creatureGrid.Rebuild(cpos)

	ppos := make(map[int64]geo.Vec2, len(s.plants))
	for id, p := range s.plants {
		ppos[id] = p.Pos
	}
	s.plantGrid.Rebuild(ppos)
}

// nearestPlant returns the closest uneaten plant within radius of p by true
// toroidal distance, or nil. Grid results are a superset and re-filtered.
func (s *Simulation) nearestPlant(p geo.Vec2, radius float64) *Plant {
	s.queryScratch = s.plantGrid.QueryInto(s.queryScratch[:0], p, radius)
	var best *Plant
	bestDist := radius
	for _, id := range s.queryScratch {
		plant := s.plants[id]
		if plant == nil || plant.eaten {
			continue
		}
		d := geo.Dist(p, plant.Pos, s.cfg.World.Width, s.cfg.World.Height)
		if d <= bestDist {
			best, bestDist = plant, d
		}
	}
	return best
}

// nearestCreature returns the closest live creature within radius of p,
// excluding the given id, or nil.
func (s *Simulation) nearestCreature(p geo.Vec2, radius float64, exclude int64) *Creature {
	s.queryScratch = s.creatureGrid.QueryInto(s.queryScratch[:0], p, radius)
	var best *Creature
	bestDist := radius
	for _, id := range s.queryScratch {
		if id == exclude {
			continue
		}
		c := s.creatures[id]
		if c == nil || c.dead {
			continue
		}
		d := geo.Dist(p, c.Body.Pos, s.cfg.World.Width, s.cfg.World.Height)
		if d <= bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Wait blocks until all outstanding background calls have finished. Call
// during shutdown, after the last Step.
func (s *Simulation) Wait() {
	s.wg.Wait()
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int64 { return s.tick }

// Creature returns the creature with the given id, or nil.
func (s *Simulation) Creature(id int64) *Creature { return s.creatures[id] }

// CreatureCount returns the live creature population.
func (s *Simulation) CreatureCount() int { return len(s.creatures) }

// PlantCount returns the current plant count.
func (s *Simulation) PlantCount() int { return len(s.plants) }

// Creatures calls fn for every creature in the collection.
func (s *Simulation) Creatures(fn func(*Creature)) {
	for _, c := range s.creatures {
		fn(c)
	}
}

// Plants calls fn for every plant in the collection.
func (s *Simulation) Plants(fn func(*Plant)) {
	for _, p := range s.plants {
		fn(p)
	}
}
