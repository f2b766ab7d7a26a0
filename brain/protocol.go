// Package brain implements the wire protocol to the external decision and
// training service: batched observation evaluation, policy-weight
// registration, and transition shipping over one persistent stream
// connection.
package brain

// Message kinds form a closed set. Anything else is a protocol error.
const (
	kindInit     = "init"
	kindEvaluate = "evaluate"
	kindTrain    = "train"
)

// Expected response statuses per request kind.
const (
	statusInitialized = "initialized"
	statusEvaluated   = "evaluated"
	statusTrained     = "trained"
)

// Sensors is one creature's observation: nearest plant and nearest other
// creature in polar form, plus normalized internal energy. Field names are
// the wire contract and must not change.
type Sensors struct {
	ID                         int64   `json:"id"`
	PlantNormalizedDistance    float64 `json:"PlantNormalizedDistance"`
	PlantAngleSin              float64 `json:"PlantAngleSin"`
	PlantAngleCos              float64 `json:"PlantAngleCos"`
	CreatureNormalizedDistance float64 `json:"CreatureNormalizedDistance"`
	CreatureAngleSin           float64 `json:"CreatureAngleSin"`
	CreatureAngleCos           float64 `json:"CreatureAngleCos"`
	Energy                     float64 `json:"Energy"`
}

// Vector flattens the observation in the order the service expects.
func (s Sensors) Vector() []float64 {
	return []float64{
		s.PlantNormalizedDistance,
		s.PlantAngleSin,
		s.PlantAngleCos,
		s.CreatureNormalizedDistance,
		s.CreatureAngleSin,
		s.CreatureAngleCos,
		s.Energy,
	}
}

// JetForces is one creature's action: per-jet activations in [0, 1].
type JetForces struct {
	Front       float64 `json:"Front"`
	Back        float64 `json:"Back"`
	TopRight    float64 `json:"TopRight"`
	TopLeft     float64 `json:"TopLeft"`
	BottomRight float64 `json:"BottomRight"`
	BottomLeft  float64 `json:"BottomLeft"`
}

// Vector flattens the action in the order the service expects.
func (j JetForces) Vector() []float64 {
	return []float64{j.Front, j.Back, j.TopRight, j.TopLeft, j.BottomRight, j.BottomLeft}
}

// JetForcesFromVector builds an action from a 6-element vector.
func JetForcesFromVector(v []float64) JetForces {
	var j JetForces
	if len(v) > 0 {
		j.Front = v[0]
	}
	if len(v) > 1 {
		j.Back = v[1]
	}
	if len(v) > 2 {
		j.TopRight = v[2]
	}
	if len(v) > 3 {
		j.TopLeft = v[3]
	}
	if len(v) > 4 {
		j.BottomRight = v[4]
	}
	if len(v) > 5 {
		j.BottomLeft = v[5]
	}
	return j
}

// Transition is one (state, action, reward, next state, done) tuple shipped
// to the trainer.
type Transition struct {
	ID        int64     `json:"id"`
	State     []float64 `json:"state"`
	Action    []float64 `json:"action"`
	Reward    float64   `json:"reward"`
	NextState []float64 `json:"next_state"`
	Done      bool      `json:"done"`
}

// BrainInit registers a creature's policy weights with the service.
type BrainInit struct {
	ID      int64     `json:"id"`
	Weights []float64 `json:"weights"`
}

// Request variants. The type field keys the closed set.

type initRequest struct {
	Type   string      `json:"type"`
	Brains []BrainInit `json:"brains"`
}

type evaluateRequest struct {
	Type    string    `json:"type"`
	Sensors []Sensors `json:"sensors"`
}

type trainRequest struct {
	Type     string       `json:"type"`
	Training []Transition `json:"training"`
}

// Response variants. Every response carries a status; error responses carry
// an error string instead.

type initResponse struct {
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Results map[int64]bool `json:"results"`
}

type evaluateResponse struct {
	Status  string              `json:"status"`
	Error   string              `json:"error,omitempty"`
	Results map[int64]JetForces `json:"results"`
}

type trainResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Info   map[int64]bool `json:"info,omitempty"`
}
