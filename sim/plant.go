package sim

import "github.com/pthm-cable/broth/geo"

// Plant is a stationary energy source. Eaten plants are marked and swept at
// the end of the tick, never removed mid-iteration.
type Plant struct {
	ID    int64
	Pos   geo.Vec2
	eaten bool
}

// Eaten reports whether the plant was consumed this tick.
func (p *Plant) Eaten() bool { return p.eaten }
