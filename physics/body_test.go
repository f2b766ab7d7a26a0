package physics

import (
	"math"
	"testing"

	"github.com/pthm-cable/broth/geo"
)

func testParams() Params {
	return Params{
		JetForce:      10,
		MinActivation: 0.1,
		JetCooldown:   0.5,
		LinearDrag:    0.2,
		AngularDrag:   0.1,
	}
}

func newTestBody() *Body {
	return NewBody(geo.Vec2{X: 50, Y: 50}, 0, 1.0, 5.0, ShapeSphere, 100, 100, testParams())
}

func TestMomentOfInertia(t *testing.T) {
	tests := []struct {
		shape Shape
		mass  float64
		size  float64
		want  float64
	}{
		{ShapeRod, 3, 2, 3 * 16.0 / 12.0},
		{ShapeSphere, 5, 2, 2.0 / 5.0 * 5 * 4},
		{ShapeCylinder, 4, 3, 0.5 * 4 * 9},
	}
	for _, tt := range tests {
		got := MomentOfInertia(tt.shape, tt.mass, tt.size)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("MomentOfInertia(%v, %v, %v) = %v, want %v", tt.shape, tt.mass, tt.size, got, tt.want)
		}
	}
}

func TestMomentOfInertiaUnknownShapePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown shape")
		}
	}()
	MomentOfInertia(Shape(200), 1, 1)
}

func TestBelowThresholdJetNeverFires(t *testing.T) {
	b := newTestBody()

	applied := b.ApplyForces([NumJets]float64{JetFront: 0.05})

	if applied != 0 {
		t.Errorf("applied activation = %v, want 0", applied)
	}
	if b.PendingThrust() != (geo.Vec2{}) {
		t.Errorf("pending thrust = %v, want zero", b.PendingThrust())
	}
	if b.Cooldown(JetFront) != 0 {
		t.Errorf("cooldown touched for unfired jet: %v", b.Cooldown(JetFront))
	}
}

func TestFiringResetsCooldown(t *testing.T) {
	b := newTestBody()

	applied := b.ApplyForces([NumJets]float64{JetFront: 1.0})
	if applied != 1.0 {
		t.Fatalf("applied = %v, want 1", applied)
	}
	if got := b.Cooldown(JetFront); got != testParams().JetCooldown {
		t.Fatalf("cooldown after firing = %v, want %v", got, testParams().JetCooldown)
	}

	// While cooling, the same jet does not fire again.
	b.Step(0.1)
	applied = b.ApplyForces([NumJets]float64{JetFront: 1.0})
	if applied != 0 {
		t.Errorf("jet fired during cooldown, applied = %v", applied)
	}

	// After the cooldown elapses it fires again.
	for i := 0; i < 5; i++ {
		b.Step(0.1)
	}
	applied = b.ApplyForces([NumJets]float64{JetFront: 1.0})
	if applied != 1.0 {
		t.Errorf("jet did not fire after cooldown elapsed, applied = %v", applied)
	}
}

func TestSpeedNeverIncreasesUnderDragOnly(t *testing.T) {
	b := newTestBody()
	b.Vel = geo.Vec2{X: 8, Y: -3}

	prev := b.Speed()
	for i := 0; i < 200; i++ {
		b.Step(1.0 / 60.0)
		speed := b.Speed()
		if speed > prev+1e-12 {
			t.Fatalf("speed increased at step %d: %v -> %v", i, prev, speed)
		}
		prev = speed
	}
}

func TestSpinDecaysUnderDragOnly(t *testing.T) {
	b := newTestBody()
	b.AngVel = 4

	prev := math.Abs(b.AngVel)
	for i := 0; i < 200; i++ {
		b.Step(1.0 / 60.0)
		spin := math.Abs(b.AngVel)
		if spin > prev+1e-12 {
			t.Fatalf("spin increased at step %d: %v -> %v", i, prev, spin)
		}
		prev = spin
	}
}

func TestFrontJetAccelerates(t *testing.T) {
	b := newTestBody()
	b.ApplyForces([NumJets]float64{JetFront: 1.0})
	b.Step(1.0 / 60.0)

	if b.Vel.X <= 0 {
		t.Errorf("front jet produced no forward velocity: %v", b.Vel)
	}
	if math.Abs(b.Vel.Y) > 1e-9 {
		t.Errorf("front jet at heading 0 produced lateral velocity: %v", b.Vel)
	}
}

func TestCornerJetsProduceOpposingTorque(t *testing.T) {
	right := newTestBody()
	right.ApplyForces([NumJets]float64{JetTopRight: 1.0})
	if right.PendingTorque() <= 0 {
		t.Errorf("top-right torque = %v, want > 0", right.PendingTorque())
	}

	left := newTestBody()
	left.ApplyForces([NumJets]float64{JetTopLeft: 1.0})
	if left.PendingTorque() >= 0 {
		t.Errorf("top-left torque = %v, want < 0", left.PendingTorque())
	}
}

func TestZeroSizeTorqueShortCircuits(t *testing.T) {
	b := NewBody(geo.Vec2{X: 50, Y: 50}, 0, 1.0, 0, ShapeSphere, 100, 100, testParams())
	b.ApplyForces([NumJets]float64{JetTopRight: 1.0})
	if b.PendingTorque() != 0 {
		t.Errorf("zero-size body accumulated torque %v", b.PendingTorque())
	}
}

func TestPositionWraps(t *testing.T) {
	b := newTestBody()
	b.Pos = geo.Vec2{X: 99, Y: 99}
	b.Vel = geo.Vec2{X: 120, Y: 120}
	b.Step(0.1)

	if b.Pos.X < 0 || b.Pos.X >= 100 || b.Pos.Y < 0 || b.Pos.Y >= 100 {
		t.Errorf("position did not wrap: %v", b.Pos)
	}
}

func TestAccumulatorsResetAfterStep(t *testing.T) {
	b := newTestBody()
	b.ApplyForces([NumJets]float64{JetFront: 1.0, JetTopRight: 1.0})
	b.Step(1.0 / 60.0)

	if b.PendingThrust() != (geo.Vec2{}) || b.PendingTorque() != 0 {
		t.Errorf("accumulators not reset: thrust=%v torque=%v", b.PendingThrust(), b.PendingTorque())
	}
}
