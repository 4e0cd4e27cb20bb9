package brain

import (
	"learninghouse/internal/fault"
	"learninghouse/internal/models"
	"learninghouse/internal/preprocessing"
)

const (
	DefaultEstimators = 100
	DefaultMaxDepth   = 5
	DefaultTestSize   = 0.2
)

// EstimatorConfiguration picks the random forest family and its size.
type EstimatorConfiguration struct {
	Typed       models.EstimatorKind `json:"typed" yaml:"typed"`
	Estimators  int                  `json:"estimators" yaml:"estimators"`
	MaxDepth    int                  `json:"max_depth" yaml:"max_depth"`
	RandomState int64                `json:"random_state" yaml:"random_state"`
}

// Configuration is the user authored part of a brain. The dependent variable
// is the column named like the brain itself.
type Configuration struct {
	Name            string                 `json:"name" yaml:"name"`
	Estimator       EstimatorConfiguration `json:"estimator" yaml:"estimator"`
	DependentEncode bool                   `json:"dependent_encode" yaml:"dependent_encode"`
	TestSize        float64                `json:"test_size" yaml:"test_size"`
}

// WithDefaults fills unset optional fields.
func (c Configuration) WithDefaults() Configuration {
	if c.Estimator.Estimators == 0 {
		c.Estimator.Estimators = DefaultEstimators
	}
	if c.Estimator.MaxDepth == 0 {
		c.Estimator.MaxDepth = DefaultMaxDepth
	}
	if c.TestSize == 0 {
		c.TestSize = DefaultTestSize
	}
	return c
}

func (c Configuration) Validate() error {
	if c.Name == "" {
		return fault.New(fault.BadRequest, "", "Brain name is required.")
	}
	if !c.Estimator.Typed.Valid() {
		return fault.Newf(fault.BadRequest, c.Name, "Estimator type must be classifier or regressor, got %q.", string(c.Estimator.Typed))
	}
	if c.Estimator.Estimators < 100 || c.Estimator.Estimators > 1000 {
		return fault.Newf(fault.BadRequest, c.Name, "Estimators must be between 100 and 1000, got %d.", c.Estimator.Estimators)
	}
	if c.Estimator.MaxDepth < 4 || c.Estimator.MaxDepth > 10 {
		return fault.Newf(fault.BadRequest, c.Name, "Max depth must be between 4 and 10, got %d.", c.Estimator.MaxDepth)
	}
	if c.TestSize <= 0 {
		return fault.Newf(fault.BadRequest, c.Name, "Test size must be greater than 0, got %v.", c.TestSize)
	}
	return nil
}

func (c Configuration) Params() models.Params {
	return models.Params{
		Estimators:  c.Estimator.Estimators,
		MaxDepth:    c.Estimator.MaxDepth,
		RandomState: c.Estimator.RandomState,
	}
}

func (c Configuration) Options() preprocessing.Options {
	return preprocessing.Options{
		Dependent:       c.Name,
		DependentEncode: c.DependentEncode,
		TestSize:        c.TestSize,
		RandomState:     c.Estimator.RandomState,
	}
}

// decodesLabels reports whether predictions go back through the encoder.
// Encoding a regressor target has no effect on decoding.
func (c Configuration) decodesLabels() bool {
	return c.DependentEncode && c.Estimator.Typed.IsClassifier()
}
