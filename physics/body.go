// Package physics provides the rigid-body integrator for creatures: six
// independently cooling jets accumulate thrust and torque, and Step
// advances the state with 4th-order Runge-Kutta under quadratic drag on a
// toroidal world.
package physics

import (
	"math"

	"github.com/pthm-cable/broth/geo"
)

// Jet identifies one of the six actuators. Front and Back are linear
// thrusters along the heading axis; the four corner jets produce torque.
type Jet int

const (
	JetFront Jet = iota
	JetBack
	JetTopRight
	JetTopLeft
	JetBottomRight
	JetBottomLeft
	NumJets
)

// String returns the jet name as it appears on the wire.
func (j Jet) String() string {
	switch j {
	case JetFront:
		return "Front"
	case JetBack:
		return "Back"
	case JetTopRight:
		return "TopRight"
	case JetTopLeft:
		return "TopLeft"
	case JetBottomRight:
		return "BottomRight"
	case JetBottomLeft:
		return "BottomLeft"
	default:
		return "Jet(?)"
	}
}

// Params holds the force and drag coefficients for a body. Supplied from
// configuration; the integrator itself never reads config.
type Params struct {
	JetForce      float64 // thrust magnitude at activation 1.0
	MinActivation float64 // activations below this never fire
	JetCooldown   float64 // seconds before a fired jet can fire again
	LinearDrag    float64 // quadratic drag coefficient opposing velocity
	AngularDrag   float64 // quadratic drag coefficient opposing spin
}

// Body is a rigid body on a toroidal world. Thrust and torque accumulate
// between ApplyForces and Step and reset to zero after each step.
type Body struct {
	Pos     geo.Vec2
	Heading float64
	Vel     geo.Vec2
	AngVel  float64

	Mass  float64
	Size  float64
	Shape Shape

	worldW, worldH float64
	params         Params
	inertia        float64

	cooldowns [NumJets]float64
	thrust    geo.Vec2 // accumulated, local frame (+X = forward)
	torque    float64  // accumulated net torque
}

// NewBody creates a body at rest.
func NewBody(pos geo.Vec2, heading, mass, size float64, shape Shape, worldW, worldH float64, params Params) *Body {
	return &Body{
		Pos:     geo.WrapVec(pos, worldW, worldH),
		Heading: geo.WrapAngle(heading),
		Mass:    mass,
		Size:    size,
		Shape:   shape,
		worldW:  worldW,
		worldH:  worldH,
		params:  params,
		inertia: MomentOfInertia(shape, mass, size),
	}
}

// ApplyForces accumulates thrust and torque for the next Step from the six
// jet activations. A jet fires only when its activation meets the minimum
// threshold and its cooldown has elapsed; firing resets that jet's
// cooldown. Returns the total activation actually applied, for energy
// accounting.
func (b *Body) ApplyForces(act [NumJets]float64) float64 {
	var applied float64
	for j := Jet(0); j < NumJets; j++ {
		a := act[j]
		if a < b.params.MinActivation || b.cooldowns[j] > 0 {
			continue
		}
		if a > 1 {
			a = 1
		}

		switch j {
		case JetFront:
			b.thrust.X += a * b.params.JetForce
		case JetBack:
			b.thrust.X -= a * b.params.JetForce
		default:
			b.torque += b.cornerTorque(j, a)
		}

		b.cooldowns[j] = b.params.JetCooldown
		applied += a
	}
	return applied
}

// cornerTorque computes the torque from one corner jet. Each corner jet
// pushes perpendicular to its offset from the center, so the full thrust
// magnitude converts to torque.
func (b *Body) cornerTorque(j Jet, activation float64) float64 {
	var offset geo.Vec2
	switch j {
	case JetTopRight:
		offset = geo.Vec2{X: b.Size, Y: b.Size}
	case JetTopLeft:
		offset = geo.Vec2{X: -b.Size, Y: b.Size}
	case JetBottomRight:
		offset = geo.Vec2{X: b.Size, Y: -b.Size}
	case JetBottomLeft:
		offset = geo.Vec2{X: -b.Size, Y: -b.Size}
	}

	// A zero offset has no lever arm and no defined perpendicular.
	if offset.LengthSq() == 0 {
		return 0
	}

	// Perpendicular force direction: counterclockwise for the right-side
	// jets, clockwise for the left-side jets.
	perp := geo.Vec2{X: -offset.Y, Y: offset.X}.Normalize()
	if j == JetTopLeft || j == JetBottomLeft {
		perp = perp.Scale(-1)
	}

	force := perp.Scale(activation * b.params.JetForce)
	return offset.Cross(force)
}

// state is the integrated state vector.
type state struct {
	pos     geo.Vec2
	vel     geo.Vec2
	heading float64
	angVel  float64
}

// derivative evaluates the equations of motion at s with the currently
// accumulated thrust and torque.
func (b *Body) derivative(s state) state {
	// Thrust is accumulated in the local frame; rotate by the stage heading.
	worldThrust := b.thrust.Rotate(s.heading)

	// Quadratic drag opposing velocity.
	drag := s.vel.Scale(-b.params.LinearDrag * s.vel.Length())
	acc := worldThrust.Add(drag).Scale(1 / b.Mass)

	// Quadratic angular drag opposing the sign of the angular velocity.
	angDrag := -b.params.AngularDrag * s.angVel * math.Abs(s.angVel)
	angAcc := (b.torque + angDrag) / b.inertia

	return state{
		pos:     s.vel,
		vel:     acc,
		heading: s.angVel,
		angVel:  angAcc,
	}
}

// Step integrates one timestep with RK4, wraps position and heading onto
// the torus, resets the thrust/torque accumulators, and advances jet
// cooldowns.
func (b *Body) Step(dt float64) {
	s0 := state{pos: b.Pos, vel: b.Vel, heading: b.Heading, angVel: b.AngVel}

	k1 := b.derivative(s0)
	k2 := b.derivative(advance(s0, k1, dt/2))
	k3 := b.derivative(advance(s0, k2, dt/2))
	k4 := b.derivative(advance(s0, k3, dt))

	b.Pos.X += dt / 6 * (k1.pos.X + 2*k2.pos.X + 2*k3.pos.X + k4.pos.X)
	b.Pos.Y += dt / 6 * (k1.pos.Y + 2*k2.pos.Y + 2*k3.pos.Y + k4.pos.Y)
	b.Vel.X += dt / 6 * (k1.vel.X + 2*k2.vel.X + 2*k3.vel.X + k4.vel.X)
	b.Vel.Y += dt / 6 * (k1.vel.Y + 2*k2.vel.Y + 2*k3.vel.Y + k4.vel.Y)
	b.Heading += dt / 6 * (k1.heading + 2*k2.heading + 2*k3.heading + k4.heading)
	b.AngVel += dt / 6 * (k1.angVel + 2*k2.angVel + 2*k3.angVel + k4.angVel)

	b.Pos = geo.WrapVec(b.Pos, b.worldW, b.worldH)
	b.Heading = geo.WrapAngle(b.Heading)

	b.thrust = geo.Vec2{}
	b.torque = 0

	for j := range b.cooldowns {
		b.cooldowns[j] -= dt
		if b.cooldowns[j] < 0 {
			b.cooldowns[j] = 0
		}
	}
}

// advance returns s moved along derivative d for time h.
func advance(s state, d state, h float64) state {
	return state{
		pos:     s.pos.Add(d.pos.Scale(h)),
		vel:     s.vel.Add(d.vel.Scale(h)),
		heading: s.heading + d.heading*h,
		angVel:  s.angVel + d.angVel*h,
	}
}

// Speed returns the current linear speed.
func (b *Body) Speed() float64 {
	return b.Vel.Length()
}

// Cooldown returns the remaining cooldown for a jet.
func (b *Body) Cooldown(j Jet) float64 {
	return b.cooldowns[j]
}

// PendingThrust returns the accumulated local-frame thrust for the next step.
func (b *Body) PendingThrust() geo.Vec2 {
	return b.thrust
}

// PendingTorque returns the accumulated net torque for the next step.
func (b *Body) PendingTorque() float64 {
	return b.torque
}
