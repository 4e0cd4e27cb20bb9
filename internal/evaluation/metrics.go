package evaluation

import (
    "math"

    "gonum.org/v1/gonum/stat"
)

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred []float64) float64 {
    if len(yTrue) == 0 || len(yTrue) != len(yPred) {
        return 0
    }

    correct := 0
    for i := range yTrue {
        if yTrue[i] == yPred[i] {
            correct++
        }
    }
    return float64(correct) / float64(len(yTrue))
}

// RSquared is the coefficient of determination of yPred against yTrue. When
// yTrue has no variance the score is 1 for a perfect prediction and 0
// otherwise, never NaN.
func RSquared(yTrue, yPred []float64) float64 {
    if len(yTrue) == 0 || len(yTrue) != len(yPred) {
        return 0
    }

    if stat.Variance(yTrue, nil) == 0 || len(yTrue) == 1 {
        for i := range yTrue {
            if yTrue[i] != yPred[i] {
                return 0
            }
        }
        return 1
    }

    r2 := stat.RSquaredFrom(yPred, yTrue, nil)
    if math.IsNaN(r2) || math.IsInf(r2, 0) {
        return 0
    }
    return r2
}
