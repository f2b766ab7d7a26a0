package genome

import (
	"math/rand"
	"testing"
)

func TestWeightCount(t *testing.T) {
	// 7->12: 84+12, 12->12: 144+12, 12->6: 72+6 = 330.
	if WeightCount != 330 {
		t.Fatalf("WeightCount = %d, want 330", WeightCount)
	}
}

func TestNewTraitsWithinRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		g := New(rng)
		for tr := Trait(0); tr < NumTraits; tr++ {
			r := Ranges[tr]
			if g.Traits[tr] < r.Min || g.Traits[tr] > r.Max {
				t.Fatalf("trait %v = %v outside [%v, %v]", tr, g.Traits[tr], r.Min, r.Max)
			}
		}
		if len(g.Weights) != WeightCount {
			t.Fatalf("weight vector length = %d, want %d", len(g.Weights), WeightCount)
		}
		for i, w := range g.Weights {
			if w < -1 || w > 1 {
				t.Fatalf("weight %d = %v outside [-1, 1]", i, w)
			}
		}
	}
}

func TestMutateStaysWithinRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rates := []float64{0, 0.01, 0.1, 0.5, 1.0}

	for _, rate := range rates {
		g := New(rng)
		// Chain mutations to accumulate drift toward the bounds.
		for i := 0; i < 50; i++ {
			g = g.Mutate(rng, rate)
			for tr := Trait(0); tr < NumTraits; tr++ {
				r := Ranges[tr]
				if g.Traits[tr] < r.Min || g.Traits[tr] > r.Max {
					t.Fatalf("rate %v: trait %v = %v escaped [%v, %v]", rate, tr, g.Traits[tr], r.Min, r.Max)
				}
			}
			for j, w := range g.Weights {
				if w < -1 || w > 1 {
					t.Fatalf("rate %v: weight %d = %v escaped [-1, 1]", rate, j, w)
				}
			}
		}
	}
}

func TestMutateDoesNotModifyReceiver(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := New(rng)

	traits := g.Traits
	weights := make([]float64, len(g.Weights))
	copy(weights, g.Weights)

	g.Mutate(rng, 1.0)

	if g.Traits != traits {
		t.Error("Mutate modified receiver traits")
	}
	for i := range weights {
		if g.Weights[i] != weights[i] {
			t.Fatalf("Mutate modified receiver weight %d", i)
		}
	}
}

func TestMutateAtRateOneChangesWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := New(rng)
	m := g.Mutate(rng, 1.0)

	changed := 0
	for i := range g.Weights {
		if m.Weights[i] != g.Weights[i] {
			changed++
		}
	}
	if changed < WeightCount/2 {
		t.Errorf("rate 1.0 changed only %d of %d weights", changed, WeightCount)
	}
}

func TestCloneIndependentStorage(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := New(rng)
	c := g.Clone()

	if len(c.Weights) != len(g.Weights) {
		t.Fatalf("clone weight length = %d, want %d", len(c.Weights), len(g.Weights))
	}

	c.Weights[0] = 99
	if g.Weights[0] == 99 {
		t.Error("mutating clone altered original weight storage")
	}

	c.Traits[TraitMass] = -1
	if g.Traits[TraitMass] == -1 {
		t.Error("mutating clone altered original traits")
	}
}

func TestShapeInherited(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	g := New(rng)
	m := g.Mutate(rng, 1.0)
	if m.Shape != g.Shape {
		t.Errorf("mutation changed shape %v -> %v", g.Shape, m.Shape)
	}
}
