// Package genome provides heritable creature parameters: scalar traits
// sampled from range-clipped Gaussians and the flat policy-weight vector
// the decision service consumes.
package genome

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/broth/physics"
)

// Network layout of the remote policy. The weight vector is a data
// contract: per layer, row-major weights then biases. 7 -> 12 -> 12 -> 6
// gives 96 + 156 + 78 = 330 floats.
const (
	SensorCount = 7
	JetCount    = 6
)

// layerSizes describes the policy network layer widths.
var layerSizes = []int{SensorCount, 12, 12, JetCount}

// WeightCount is the length of the flat policy-weight vector.
var WeightCount = countWeights()

func countWeights() int {
	n := 0
	for i := 1; i < len(layerSizes); i++ {
		n += layerSizes[i-1]*layerSizes[i] + layerSizes[i]
	}
	return n
}

// Trait indexes a scalar heritable value.
type Trait int

const (
	TraitEnergyStorage Trait = iota
	TraitMass
	TraitSize
	NumTraits
)

// String returns the trait name.
func (t Trait) String() string {
	switch t {
	case TraitEnergyStorage:
		return "energy_storage"
	case TraitMass:
		return "mass"
	case TraitSize:
		return "size"
	default:
		return "trait(?)"
	}
}

// Range declares the legal interval for a trait. Every trait stays within
// its range through construction and all mutations.
type Range struct {
	Min, Max float64
}

// Ranges holds the declared range per trait.
var Ranges = [NumTraits]Range{
	TraitEnergyStorage: {Min: 60, Max: 140},
	TraitMass:          {Min: 0.5, Max: 2.0},
	TraitSize:          {Min: 3, Max: 10},
}

// Genome is an immutable heritable parameter set. Mutate returns a new
// Genome; the receiver is never modified.
type Genome struct {
	Traits  [NumTraits]float64
	Shape   physics.Shape
	Weights []float64 // length WeightCount, each in [-1, 1]
}

// New samples a fresh genome. Each trait draws from a Gaussian centered on
// its range midpoint with sigma = range/6, clipped to the range. The weight
// vector is initialized per layer with fan-in/fan-out scaled uniform values
// and zero biases.
func New(rng *rand.Rand) Genome {
	var g Genome
	for t := Trait(0); t < NumTraits; t++ {
		g.Traits[t] = sampleTrait(rng, Ranges[t])
	}

	shapes := physics.Shapes()
	g.Shape = shapes[rng.Intn(len(shapes))]

	g.Weights = initWeights(rng)
	return g
}

// expRandSource adapts *math/rand.Rand to the golang.org/x/exp/rand
// Source interface that gonum's distuv expects, so the caller's rng
// still drives the distribution.
type expRandSource struct{ *rand.Rand }

func (s expRandSource) Seed(seed uint64) { s.Rand.Seed(int64(seed)) }

// sampleTrait draws one range-clipped Gaussian trait value.
func sampleTrait(rng *rand.Rand, r Range) float64 {
	dist := distuv.Normal{
		Mu:    (r.Min + r.Max) / 2,
		Sigma: (r.Max - r.Min) / 6,
		Src:   expRandSource{rng},
	}
	return clamp(dist.Rand(), r.Min, r.Max)
}

// initWeights builds the flat weight vector: per layer, out*in weights
// scaled by the Glorot fan-in/fan-out limit, then zero biases.
func initWeights(rng *rand.Rand) []float64 {
	w := make([]float64, 0, WeightCount)
	for i := 1; i < len(layerSizes); i++ {
		fanIn, fanOut := layerSizes[i-1], layerSizes[i]
		limit := glorotLimit(fanIn, fanOut)
		for k := 0; k < fanIn*fanOut; k++ {
			w = append(w, (rng.Float64()*2-1)*limit)
		}
		for k := 0; k < fanOut; k++ {
			w = append(w, 0)
		}
	}
	return w
}

func glorotLimit(fanIn, fanOut int) float64 {
	return math.Sqrt(6.0 / float64(fanIn+fanOut))
}

// Mutation deltas: traits move by up to 5% of their range, weights by a
// small fixed interval, re-clamped to [-1, 1].
const (
	traitDeltaFraction = 0.05
	weightDelta        = 0.1
)

// Mutate returns a new genome with each trait and weight independently
// perturbed with probability rate. The receiver is unchanged.
func (g Genome) Mutate(rng *rand.Rand, rate float64) Genome {
	out := g.Clone()

	for t := Trait(0); t < NumTraits; t++ {
		if rng.Float64() >= rate {
			continue
		}
		r := Ranges[t]
		delta := (rng.Float64()*2 - 1) * traitDeltaFraction * (r.Max - r.Min)
		out.Traits[t] = clamp(out.Traits[t]+delta, r.Min, r.Max)
	}

	for i := range out.Weights {
		if rng.Float64() >= rate {
			continue
		}
		delta := (rng.Float64()*2 - 1) * weightDelta
		out.Weights[i] = clamp(out.Weights[i]+delta, -1, 1)
	}

	return out
}

// Clone returns a deep copy, including independent weight storage.
func (g Genome) Clone() Genome {
	out := g
	out.Weights = make([]float64, len(g.Weights))
	copy(out.Weights, g.Weights)
	return out
}

// EnergyStorage returns the maximum energy this genome supports.
func (g Genome) EnergyStorage() float64 { return g.Traits[TraitEnergyStorage] }

// Mass returns the body mass.
func (g Genome) Mass() float64 { return g.Traits[TraitMass] }

// Size returns the body size (half-length or radius depending on shape).
func (g Genome) Size() float64 { return g.Traits[TraitSize] }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
