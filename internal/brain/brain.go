package brain

import (
	"fmt"
	"strings"
	"time"

	"learninghouse/internal/models"
	"learninghouse/internal/preprocessing"
	"learninghouse/internal/versions"
)

// MinTrainingRows is the smallest observation log a brain trains on.
const MinTrainingRows = 10

// DatasetState is what training learns. It is rebuilt from scratch on every
// run and kept apart from the configuration.
type DatasetState struct {
	preprocessing.State
	DataSize int
}

// Brain is the persisted aggregate: configuration, fitted dataset state, the
// estimator and the stamp of the run that produced them.
type Brain struct {
	Name          string
	Configuration Configuration
	Dataset       DatasetState
	Model         models.Estimator
	Score         float64
	TrainedAt     time.Time
	Versions      versions.Versions
}

func New(cfg Configuration) *Brain {
	return &Brain{
		Name:          cfg.Name,
		Configuration: cfg,
	}
}

// Estimator builds the configured estimator on first use and returns the same
// instance afterwards.
func (b *Brain) Estimator() (models.Estimator, error) {
	if b.Model == nil {
		est, err := b.Configuration.Estimator.Typed.Build(b.Configuration.Params())
		if err != nil {
			return nil, err
		}
		b.Model = est
	}
	return b.Model, nil
}

// Trained reports whether the brain has gone through a full training run.
func (b *Brain) Trained() bool {
	return len(b.Dataset.Features) > 0 && b.Model != nil
}

func (b *Brain) Info(current versions.Versions) Info {
	info := Info{
		Name:             b.Name,
		Configuration:    b.Configuration,
		Features:         b.Dataset.Features,
		TrainingDataSize: b.Dataset.DataSize,
		Score:            b.Score,
		Versions:         b.Versions,
		ActualVersions:   b.Versions == current,
	}
	if info.Features == nil {
		info.Features = []string{}
	}
	if !b.TrainedAt.IsZero() {
		trainedAt := b.TrainedAt
		info.TrainedAt = &trainedAt
	}
	return info
}

// decode turns a raw estimator output into the value returned to callers.
func (b *Brain) decode(raw float64) (any, error) {
	if !b.Configuration.decodesLabels() {
		return raw, nil
	}

	if b.Dataset.Encoder == nil {
		return nil, fmt.Errorf("brain %s has no fitted label encoder", b.Name)
	}

	labels, err := b.Dataset.Encoder.InverseTransform([]int{int(raw)})
	if err != nil {
		return nil, err
	}

	switch {
	case strings.EqualFold(labels[0], "true"):
		return true, nil
	case strings.EqualFold(labels[0], "false"):
		return false, nil
	}
	return labels[0], nil
}

// Info is the summary written next to the compiled brain and returned by
// training and prediction.
type Info struct {
	Name             string            `json:"name"`
	Configuration    Configuration     `json:"configuration"`
	Features         []string          `json:"features"`
	TrainingDataSize int               `json:"training_data_size"`
	Score            float64           `json:"score"`
	TrainedAt        *time.Time        `json:"trained_at"`
	Versions         versions.Versions `json:"versions"`
	ActualVersions   bool              `json:"actual_versions"`
}

type PredictionResult struct {
	Brain        Info               `json:"brain"`
	Preprocessed map[string]float64 `json:"preprocessed"`
	Prediction   any                `json:"prediction"`
}
