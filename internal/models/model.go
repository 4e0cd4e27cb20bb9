package models

import (
    "sort"
)

// Estimator is a fitted-in-place model over a dense float matrix. Missing
// values must be imputed before Fit and Predict.
type Estimator interface {
    Fit(X [][]float64, y []float64) error
    Predict(X [][]float64) []float64
    FeatureImportances() []float64
    GetName() string
    GetParams() map[string]any
}

type Task int

const (
    Classification Task = iota
    Regression
)

func (t Task) String() string {
    if t == Regression {
        return "regression"
    }
    return "classification"
}

type BaseModel struct {
    Name   string
    Params map[string]any
}

func (bm *BaseModel) GetName() string {
    return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
    return bm.Params
}

// ExtractClasses returns the distinct labels in ascending order.
func ExtractClasses(y []float64) []float64 {
    classMap := make(map[float64]bool)
    for _, label := range y {
        classMap[label] = true
    }

    classes := make([]float64, 0, len(classMap))
    for class := range classMap {
        classes = append(classes, class)
    }
    sort.Float64s(classes)

    return classes
}

func encodeClasses(y []float64, classes []float64) []float64 {
    index := make(map[float64]int, len(classes))
    for i, c := range classes {
        index[c] = i
    }

    encoded := make([]float64, len(y))
    for i, label := range y {
        encoded[i] = float64(index[label])
    }
    return encoded
}

func argmax(values []float64) int {
    best := 0
    for i, v := range values {
        if v > values[best] {
            best = i
        }
    }
    return best
}
