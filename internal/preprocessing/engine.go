package preprocessing

import (
    "fmt"
    "math"

    "learninghouse/internal/data"
    "learninghouse/internal/evaluation"
    "learninghouse/internal/sensors"
)

// Options are the configured knobs of a brain the engine needs.
type Options struct {
    Dependent       string
    DependentEncode bool
    TestSize        float64
    RandomState     int64
}

// State is what training learns about the dataset and prediction reuses.
type State struct {
    Features []string
    Imputer  *MeanImputer
    Encoder  *LabelEncoder
}

// TrainingSet is a prepared, imputed train/test split.
type TrainingSet struct {
    XTrain *Matrix
    XTest  *Matrix
    YTrain []float64
    YTest  []float64
}

type Engine struct {
    sensors sensors.Sensors
}

func NewEngine(registry sensors.Sensors) *Engine {
    return &Engine{sensors: registry}
}

// SelectColumnsAndSplitKinds builds the model matrix from the registered
// columns of frame. Numerical columns are copied (NaN when missing),
// categorical columns are one-hot encoded as "{column}_{value}". When
// onlyFeatures is set the result is restricted to features. Columns come out
// sorted. The second result is the numerical names of the registry.
func (e *Engine) SelectColumnsAndSplitKinds(frame *data.Frame, features []string, onlyFeatures bool) (*Matrix, []string) {
    categoricals, numericals := e.sensors.Partition()
    columns := frame.Columns()

    x := NewMatrix(frame.Len())

    for _, column := range intersection(numericals, columns) {
        values := make([]float64, frame.Len())
        for i, v := range frame.Column(column) {
            f, ok := data.ToFloat(v)
            if !ok {
                f = math.NaN()
            }
            values[i] = f
        }
        x.Set(column, values)
    }

    for _, column := range intersection(categoricals, columns) {
        raw := frame.Column(column)

        seen := make(map[string]bool)
        for _, v := range raw {
            if v != nil {
                seen[data.FormatValue(v)] = true
            }
        }

        for category := range seen {
            values := make([]float64, frame.Len())
            for i, v := range raw {
                if v != nil && data.FormatValue(v) == category {
                    values[i] = 1
                }
            }
            x.Set(column+"_"+category, values)
        }
    }

    if onlyFeatures {
        x = x.Select(intersection(x.Columns(), features))
    }

    return x.SortColumns(), numericals
}

// PrepareTraining selects columns, encodes the target, splits the rows and
// imputes numerical gaps with means of the train split only. It refits
// state.Imputer and, when the target is encoded, state.Encoder.
func (e *Engine) PrepareTraining(frame *data.Frame, opts Options, state *State, onlyFeatures bool) (*TrainingSet, error) {
    if !frame.Has(opts.Dependent) {
        return nil, fmt.Errorf("dependent variable %s not in training data", opts.Dependent)
    }

    x, numericals := e.SelectColumnsAndSplitKinds(frame, state.Features, onlyFeatures)
    if len(x.Columns()) == 0 {
        return nil, fmt.Errorf("no registered sensor columns in training data")
    }

    y, err := e.target(frame, opts, state)
    if err != nil {
        return nil, err
    }

    splitter := evaluation.NewTrainTestSplitter(opts.TestSize, opts.RandomState, true)
    trainRows, testRows, err := splitter.Split(x.Len())
    if err != nil {
        return nil, err
    }

    xTrain := x.Take(trainRows)
    xTest := x.Take(testRows)

    var nums []string
    if onlyFeatures {
        nums = intersection(numericals, state.Features)
    } else {
        nums = intersection(numericals, frame.Columns())
    }
    nums = intersection(nums, x.Columns())

    state.Imputer = NewMeanImputer()
    if err := state.Imputer.Fit(xTrain, nums); err != nil {
        return nil, err
    }

    if xTrain, err = state.Imputer.Transform(xTrain); err != nil {
        return nil, err
    }
    if xTest, err = state.Imputer.Transform(xTest); err != nil {
        return nil, err
    }

    return &TrainingSet{
        XTrain: xTrain.SortColumns(),
        XTest:  xTest.SortColumns(),
        YTrain: take(y, trainRows),
        YTest:  take(y, testRows),
    }, nil
}

// PreparePrediction shapes a frame of observations exactly like the training
// matrix: missing numerical features are imputed, missing one-hot columns
// are 0 and columns outside the feature list are dropped.
func (e *Engine) PreparePrediction(frame *data.Frame, state *State) (*Matrix, error) {
    if state.Imputer == nil {
        return nil, fmt.Errorf("no fitted imputer")
    }

    x, numericals := e.SelectColumnsAndSplitKinds(frame, state.Features, true)

    for _, column := range intersection(state.Features, numericals) {
        if !x.Has(column) {
            x.Set(column, filled(x.Len(), math.NaN()))
        }
    }

    x = x.Reindex(state.Features, 0)

    x, err := state.Imputer.Transform(x)
    if err != nil {
        return nil, err
    }

    return x.SortColumns(), nil
}

func (e *Engine) target(frame *data.Frame, opts Options, state *State) ([]float64, error) {
    raw := frame.Column(opts.Dependent)
    y := make([]float64, len(raw))

    if opts.DependentEncode {
        labels := make([]string, len(raw))
        for i, v := range raw {
            labels[i] = data.FormatValue(v)
        }

        state.Encoder = NewLabelEncoder()
        encoded, err := state.Encoder.FitTransform(labels)
        if err != nil {
            return nil, err
        }
        for i, v := range encoded {
            y[i] = float64(v)
        }
        return y, nil
    }

    for i, v := range raw {
        f, ok := data.ToFloat(v)
        if !ok || math.IsNaN(f) {
            return nil, fmt.Errorf("dependent variable %s has non numeric value %q, enable dependent_encode", opts.Dependent, data.FormatValue(v))
        }
        y[i] = f
    }
    return y, nil
}

// intersection returns the elements of a also in b, in the order of a.
func intersection(a, b []string) []string {
    set := make(map[string]bool, len(b))
    for _, s := range b {
        set[s] = true
    }

    out := make([]string, 0, len(a))
    for _, s := range a {
        if set[s] {
            out = append(out, s)
        }
    }
    return out
}

func take(values []float64, rows []int) []float64 {
    out := make([]float64, len(rows))
    for i, r := range rows {
        out[i] = values[r]
    }
    return out
}
