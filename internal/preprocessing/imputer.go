package preprocessing

import (
    "fmt"
    "math"

    "github.com/shopspring/decimal"
)

// MeanImputer replaces NaN in the fitted columns with the column mean seen
// at fit time. A column without any observed value gets 0.
type MeanImputer struct {
    Statistics map[string]float64
    Columns    []string
    IsFitted   bool
}

func NewMeanImputer() *MeanImputer {
    return &MeanImputer{
        Statistics: make(map[string]float64),
        IsFitted:   false,
    }
}

func (mi *MeanImputer) Fit(X *Matrix, columns []string) error {
    mi.Statistics = make(map[string]float64, len(columns))
    mi.Columns = nil

    for _, column := range columns {
        values, ok := X.Column(column)
        if !ok {
            return fmt.Errorf("column %s not in matrix", column)
        }

        sum := decimal.Zero
        count := 0
        for _, v := range values {
            if math.IsNaN(v) {
                continue
            }
            sum = sum.Add(decimal.NewFromFloat(v))
            count++
        }

        mean := 0.0
        if count > 0 {
            mean = sum.Div(decimal.NewFromInt(int64(count))).InexactFloat64()
        }

        mi.Statistics[column] = mean
        mi.Columns = append(mi.Columns, column)
    }

    mi.IsFitted = true
    return nil
}

// Transform returns a copy of X with missing values filled. Fitted columns
// absent from X are left out.
func (mi *MeanImputer) Transform(X *Matrix) (*Matrix, error) {
    if !mi.IsFitted {
        return nil, fmt.Errorf("imputer must be fitted before transform")
    }

    out := NewMatrix(X.Len())
    for _, column := range X.Columns() {
        values, _ := X.Column(column)

        mean, ok := mi.Statistics[column]
        if !ok {
            out.Set(column, values)
            continue
        }

        filledValues := make([]float64, len(values))
        for i, v := range values {
            if math.IsNaN(v) {
                filledValues[i] = mean
            } else {
                filledValues[i] = v
            }
        }
        out.Set(column, filledValues)
    }

    return out, nil
}

func (mi *MeanImputer) FitTransform(X *Matrix, columns []string) (*Matrix, error) {
    if err := mi.Fit(X, columns); err != nil {
        return nil, err
    }
    return mi.Transform(X)
}
