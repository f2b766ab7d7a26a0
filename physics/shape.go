package physics

import "fmt"

// Shape selects the closed-form moment of inertia for a body. The set is
// closed; an unrecognized value reaching MomentOfInertia is a bug.
type Shape uint8

const (
	ShapeRod Shape = iota
	ShapeSphere
	ShapeCylinder
	numShapes
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeRod:
		return "rod"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	default:
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
}

// Shapes returns all valid shapes, for random sampling.
func Shapes() []Shape {
	return []Shape{ShapeRod, ShapeSphere, ShapeCylinder}
}

// MomentOfInertia returns the moment of inertia about the center for a body
// of the given mass and size (half-length for a rod, radius otherwise).
// Panics on an unknown shape: the shape set is closed and this is
// unreachable through normal construction.
func MomentOfInertia(s Shape, mass, size float64) float64 {
	switch s {
	case ShapeRod:
		// Thin rod of length 2*size about its center: m*L^2/12.
		length := 2 * size
		return mass * length * length / 12
	case ShapeSphere:
		return 2.0 / 5.0 * mass * size * size
	case ShapeCylinder:
		return 0.5 * mass * size * size
	default:
		panic(fmt.Sprintf("physics: unknown shape %d in moment of inertia", uint8(s)))
	}
}
