package telemetry

import (
	"sort"

	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	GrazerCount   int `csv:"grazers"`
	ParasiteCount int `csv:"parasites"`
	PlantCount    int `csv:"plants"`

	// Events during window
	Births      int     `csv:"births"`
	Deaths      int     `csv:"deaths"`
	PlantsEaten int     `csv:"plants_eaten"`
	Siphoned    float64 `csv:"siphoned"` // total energy drained by parasites

	// Decision-service health during window
	EvalOK      int `csv:"eval_ok"`
	EvalFailed  int `csv:"eval_failed"`
	Transitions int `csv:"transitions"` // shipped for training

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Age distribution (sampled at window end)
	AgeMean float64 `csv:"age_mean"`
	AgeMax  float64 `csv:"age_max"`
}

// ComputeDistribution calculates mean, standard deviation, and the 10th,
// 50th, and 90th percentiles of values. Zeroes for an empty slice.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// MarshalLogObject implements zapcore.ObjectMarshaler so a window can be
// logged as one structured entry.
func (s WindowStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("window_start", s.WindowStartTick)
	enc.AddInt64("window_end", s.WindowEndTick)
	enc.AddFloat64("sim_time", s.SimTimeSec)
	enc.AddInt("grazers", s.GrazerCount)
	enc.AddInt("parasites", s.ParasiteCount)
	enc.AddInt("plants", s.PlantCount)
	enc.AddInt("births", s.Births)
	enc.AddInt("deaths", s.Deaths)
	enc.AddInt("plants_eaten", s.PlantsEaten)
	enc.AddFloat64("siphoned", s.Siphoned)
	enc.AddInt("eval_ok", s.EvalOK)
	enc.AddInt("eval_failed", s.EvalFailed)
	enc.AddInt("transitions", s.Transitions)
	enc.AddFloat64("energy_mean", s.EnergyMean)
	enc.AddFloat64("energy_p10", s.EnergyP10)
	enc.AddFloat64("energy_p50", s.EnergyP50)
	enc.AddFloat64("energy_p90", s.EnergyP90)
	enc.AddFloat64("age_mean", s.AgeMean)
	enc.AddFloat64("age_max", s.AgeMax)
	return nil
}
