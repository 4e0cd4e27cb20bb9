package models

import (
    "fmt"

    "gonum.org/v1/gonum/stat"
)

// SelectFromModel keeps the columns whose importance is at least the mean
// importance of the fitted estimator. Column order is preserved.
func SelectFromModel(est Estimator, columns []string) ([]string, error) {
    importances := est.FeatureImportances()
    if len(importances) != len(columns) {
        return nil, fmt.Errorf("estimator reports %d importances for %d columns", len(importances), len(columns))
    }
    if len(columns) == 0 {
        return nil, fmt.Errorf("no columns to select from")
    }

    threshold := stat.Mean(importances, nil)

    selected := make([]string, 0, len(columns))
    for i, column := range columns {
        if importances[i] >= threshold-1e-12 {
            selected = append(selected, column)
        }
    }
    return selected, nil
}
