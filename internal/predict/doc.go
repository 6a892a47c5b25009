// Package predict evaluates the trained watering model.
//
// The model is a standard-scaled feed-forward network over four features
// in fixed order: temperature (°C), humidity (%), rain chance (%) and sun
// hours. Hidden layers use ReLU; the single output logit goes through a
// sigmoid to give the watering probability. The device is watered when
// the probability is strictly greater than the threshold (default 0.5).
//
// Weights are exported from training as JSON:
//
//	{
//	  "mean": [4 values],
//	  "std":  [4 values],
//	  "layers": [
//	    {"weights": [[...in...], ...out rows...], "bias": [...out...]},
//	    ...
//	  ]
//	}
//
// The shipped network is 4 -> 32 -> 16 -> 1, but any layer sizes load
// as long as they chain from 4 inputs to 1 output. Evaluation is pure and
// deterministic; a Model is safe for concurrent use.
package predict
