package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// NumFeatures is the model's input width.
const NumFeatures = 4

// DefaultThreshold is the probability above which the model says water.
const DefaultThreshold = 0.5

// Features are the model inputs.
type Features struct {
	Temperature float64 // °C
	Humidity    float64 // %
	RainChance  float64 // %, 0-100
	SunHours    float64 // hours
}

func (f Features) vector() [NumFeatures]float64 {
	return [NumFeatures]float64{f.Temperature, f.Humidity, f.RainChance, f.SunHours}
}

// Validate rejects non-finite inputs.
func (f Features) Validate() error {
	names := [NumFeatures]string{"temperature", "humidity", "rain_chance", "sun_hours"}
	for i, v := range f.vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidFeatures, names[i], v)
		}
	}
	return nil
}

// Result is a model verdict.
type Result struct {
	Water       bool
	Probability float64
}

// weightsFile is the JSON export format.
type weightsFile struct {
	Mean   []float64 `json:"mean"`
	Std    []float64 `json:"std"`
	Layers []struct {
		Weights [][]float64 `json:"weights"`
		Bias    []float64   `json:"bias"`
	} `json:"layers"`
}

type layer struct {
	weights [][]float64 // [out][in]
	bias    []float64   // [out]
}

// Model is a loaded network.
type Model struct {
	mean      [NumFeatures]float64
	scale     [NumFeatures]float64
	layers    []layer
	threshold float64
}

// Load reads a weights file from disk.
//
// Parameters:
//   - path: JSON weights file
//   - threshold: Decision threshold in (0, 1); 0 selects DefaultThreshold
//
// Returns:
//   - *Model: Ready to evaluate
//   - error: wrapping ErrInvalidModel for shape or value problems
func Load(path string, threshold float64) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model weights: %w", err)
	}
	return Parse(data, threshold)
}

// Parse builds a Model from JSON weights.
func Parse(data []byte, threshold float64) (*Model, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if !(threshold > 0 && threshold < 1) {
		return nil, fmt.Errorf("%w: threshold %v outside (0, 1)", ErrInvalidModel, threshold)
	}

	var wf weightsFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	m := &Model{threshold: threshold}

	if len(wf.Mean) != NumFeatures || len(wf.Std) != NumFeatures {
		return nil, fmt.Errorf("%w: mean and std need %d values, got %d and %d",
			ErrInvalidModel, NumFeatures, len(wf.Mean), len(wf.Std))
	}
	for i := 0; i < NumFeatures; i++ {
		if !finite(wf.Mean[i]) || !finite(wf.Std[i]) || wf.Std[i] < 0 {
			return nil, fmt.Errorf("%w: bad scaler value at feature %d", ErrInvalidModel, i)
		}
		m.mean[i] = wf.Mean[i]
		m.scale[i] = wf.Std[i]
		// Constant features are centred but not scaled.
		if m.scale[i] == 0 {
			m.scale[i] = 1
		}
	}

	if len(wf.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidModel)
	}

	in := NumFeatures
	for li, l := range wf.Layers {
		out := len(l.Weights)
		if out == 0 {
			return nil, fmt.Errorf("%w: layer %d has no outputs", ErrInvalidModel, li)
		}
		if len(l.Bias) != out {
			return nil, fmt.Errorf("%w: layer %d has %d weight rows but %d biases", ErrInvalidModel, li, out, len(l.Bias))
		}
		for r, row := range l.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("%w: layer %d row %d has %d inputs, want %d", ErrInvalidModel, li, r, len(row), in)
			}
			for _, w := range row {
				if !finite(w) {
					return nil, fmt.Errorf("%w: layer %d has a non-finite weight", ErrInvalidModel, li)
				}
			}
		}
		for _, b := range l.Bias {
			if !finite(b) {
				return nil, fmt.Errorf("%w: layer %d has a non-finite bias", ErrInvalidModel, li)
			}
		}
		m.layers = append(m.layers, layer{weights: l.Weights, bias: l.Bias})
		in = out
	}
	if in != 1 {
		return nil, fmt.Errorf("%w: final layer has %d outputs, want 1", ErrInvalidModel, in)
	}

	return m, nil
}

// Threshold returns the decision threshold.
func (m *Model) Threshold() float64 {
	return m.threshold
}

// Predict evaluates the model.
//
// Returns:
//   - Result: Water is true when Probability > threshold
//   - error: wrapping ErrInvalidFeatures, or ctx.Err()
func (m *Model) Predict(ctx context.Context, f Features) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	x := f.vector()
	act := make([]float64, NumFeatures)
	for i := 0; i < NumFeatures; i++ {
		act[i] = (x[i] - m.mean[i]) / m.scale[i]
	}

	last := len(m.layers) - 1
	for li, l := range m.layers {
		next := make([]float64, len(l.weights))
		for o, row := range l.weights {
			sum := l.bias[o]
			for i, w := range row {
				sum += w * act[i]
			}
			if li < last && sum < 0 {
				sum = 0
			}
			next[o] = sum
		}
		act = next
	}

	p := sigmoid(act[0])
	return Result{Water: p > m.threshold, Probability: p}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
