package models

import (
    "encoding/gob"
    "fmt"

    "learninghouse/internal/evaluation"
)

func init() {
    gob.Register(&RandomForest{})
    gob.Register(&DecisionTree{})
}

// EstimatorKind selects the estimator family a brain trains.
type EstimatorKind string

const (
    Classifier EstimatorKind = "classifier"
    Regressor  EstimatorKind = "regressor"
)

// Params are the hyperparameters shared by both families.
type Params struct {
    Estimators  int
    MaxDepth    int
    RandomState int64
}

type family struct {
    task  Task
    build func(p Params) Estimator
    score func(yTrue, yPred []float64) float64
}

var families = map[EstimatorKind]family{
    Classifier: {
        task: Classification,
        build: func(p Params) Estimator {
            return NewRandomForestClassifier(p.Estimators, p.MaxDepth, p.RandomState)
        },
        score: evaluation.Accuracy,
    },
    Regressor: {
        task: Regression,
        build: func(p Params) Estimator {
            return NewRandomForestRegressor(p.Estimators, p.MaxDepth, p.RandomState)
        },
        score: evaluation.RSquared,
    },
}

func ParseEstimatorKind(s string) (EstimatorKind, error) {
    kind := EstimatorKind(s)
    if _, ok := families[kind]; !ok {
        return "", fmt.Errorf("unknown estimator type: %q (want classifier or regressor)", s)
    }
    return kind, nil
}

func (k EstimatorKind) Valid() bool {
    _, ok := families[k]
    return ok
}

func (k EstimatorKind) IsClassifier() bool {
    return k == Classifier
}

func (k EstimatorKind) Task() Task {
    return families[k].task
}

// Build returns an unfitted estimator of this family.
func (k EstimatorKind) Build(p Params) (Estimator, error) {
    f, ok := families[k]
    if !ok {
        return nil, fmt.Errorf("unknown estimator type: %q", string(k))
    }
    return f.build(p), nil
}

// Score is accuracy for classifiers and R² for regressors.
func (k EstimatorKind) Score(est Estimator, X [][]float64, y []float64) float64 {
    f, ok := families[k]
    if !ok || len(X) == 0 {
        return 0
    }
    return f.score(y, est.Predict(X))
}
