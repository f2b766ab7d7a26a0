package sim

import "github.com/pthm-cable/broth/brain"

// CreatureView is an immutable snapshot of one creature for presentation
// consumers. It carries values only; holders cannot mutate the simulation.
type CreatureView struct {
	ID      int64           `json:"id"`
	Diet    string          `json:"diet"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Heading float64         `json:"heading"`
	Shape   string          `json:"shape"`
	Energy  float64         `json:"energy"`
	Storage float64         `json:"storage"`
	Age     float64         `json:"age"`
	Sensors brain.Sensors   `json:"sensors"`
	Action  brain.JetForces `json:"action"`
}

// PlantView is an immutable snapshot of one plant.
type PlantView struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// WorldView is a full snapshot of the visible world state at one tick.
type WorldView struct {
	Tick      int64          `json:"tick"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Creatures []CreatureView `json:"creatures"`
	Plants    []PlantView    `json:"plants"`
}

// View captures the current world state. Call from the tick goroutine only;
// the returned value is safe to hand to other goroutines.
func (s *Simulation) View() WorldView {
	v := WorldView{
		Tick:      s.tick,
		Width:     s.cfg.World.Width,
		Height:    s.cfg.World.Height,
		Creatures: make([]CreatureView, 0, len(s.creatures)),
		Plants:    make([]PlantView, 0, len(s.plants)),
	}
	for _, c := range s.creatures {
		v.Creatures = append(v.Creatures, CreatureView{
			ID:      c.ID,
			Diet:    c.Diet.String(),
			X:       c.Body.Pos.X,
			Y:       c.Body.Pos.Y,
			Heading: c.Body.Heading,
			Shape:   c.Body.Shape.String(),
			Energy:  c.Energy,
			Storage: c.Storage(),
			Age:     c.Age,
			Sensors: c.LastSensors,
			Action:  c.LastAction,
		})
	}
	for _, p := range s.plants {
		v.Plants = append(v.Plants, PlantView{ID: p.ID, X: p.Pos.X, Y: p.Pos.Y})
	}
	return v
}
