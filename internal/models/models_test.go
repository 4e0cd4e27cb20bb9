package models

import (
    "bytes"
    "encoding/gob"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// thresholdData labels rows by the first column; the second column is noise
// that never helps.
func thresholdData() ([][]float64, []float64) {
    var X [][]float64
    var y []float64
    for i := 0; i < 40; i++ {
        x0 := float64(i % 10)
        x1 := float64((i * 7) % 3)
        label := 0.0
        if x0 >= 5 {
            label = 1
        }
        X = append(X, []float64{x0, x1})
        y = append(y, label)
    }
    return X, y
}

func TestDecisionTreeClassification(t *testing.T) {
    X, y := thresholdData()

    tree := NewDecisionTree(Classification, 5, 2)
    require.NoError(t, tree.Fit(X, y))

    assert.Equal(t, []float64{0, 1}, tree.Predict([][]float64{{2, 0}, {8, 2}}))
    assert.InDelta(t, 1.0, tree.FeatureImportances()[0], 1e-9)
    assert.InDelta(t, 4.5, tree.Root.Threshold, 1e-9)
}

func TestDecisionTreeRegression(t *testing.T) {
    X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
    y := []float64{5, 5, 5, 20, 20, 20}

    tree := NewDecisionTree(Regression, 3, 2)
    require.NoError(t, tree.Fit(X, y))

    assert.Equal(t, []float64{5, 20}, tree.Predict([][]float64{{0}, {15}}))
}

func TestDecisionTreeRejectsBadInput(t *testing.T) {
    tree := NewDecisionTree(Classification, 3, 2)
    assert.Error(t, tree.Fit(nil, nil))
    assert.Error(t, tree.Fit([][]float64{{1}}, []float64{1, 2}))
    assert.Error(t, tree.Fit([][]float64{{}}, []float64{1}))
}

func TestRandomForestClassifier(t *testing.T) {
    X, y := thresholdData()

    forest := NewRandomForestClassifier(20, 5, 0)
    require.NoError(t, forest.Fit(X, y))

    assert.Equal(t, []float64{0, 1}, forest.Classes)
    assert.Equal(t, []float64{0, 0, 1, 1}, forest.Predict([][]float64{{0, 1}, {3, 2}, {6, 0}, {9, 1}}))

    importances := forest.FeatureImportances()
    require.Len(t, importances, 2)
    assert.InDelta(t, 1.0, importances[0]+importances[1], 1e-9)
    assert.Greater(t, importances[0], importances[1])

    proba := forest.PredictProba([]float64{9, 0})
    assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-9)
    assert.Greater(t, proba[1], proba[0])
}

func TestRandomForestIsReproducible(t *testing.T) {
    X, y := thresholdData()

    a := NewRandomForestClassifier(10, 4, 7)
    b := NewRandomForestClassifier(10, 4, 7)
    b.Parallel = false

    require.NoError(t, a.Fit(X, y))
    require.NoError(t, b.Fit(X, y))

    assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
    assert.Equal(t, a.Predict(X), b.Predict(X))
}

func TestRandomForestRegressor(t *testing.T) {
    var X [][]float64
    var y []float64
    for i := 0; i < 30; i++ {
        X = append(X, []float64{float64(i)})
        y = append(y, 2*float64(i))
    }

    forest := NewRandomForestRegressor(20, 10, 0)
    require.NoError(t, forest.Fit(X, y))

    predicted := forest.Predict([][]float64{{15}})
    assert.InDelta(t, 30, predicted[0], 6)
    require.Len(t, forest.FeatureImportances(), 1)
    assert.InDelta(t, 1.0, forest.FeatureImportances()[0], 1e-9)
}

func TestRandomForestSingleClass(t *testing.T) {
    X := [][]float64{{1}, {2}, {3}}
    y := []float64{4, 4, 4}

    forest := NewRandomForestClassifier(5, 3, 0)
    require.NoError(t, forest.Fit(X, y))

    assert.Equal(t, []float64{4, 4}, forest.Predict([][]float64{{0}, {10}}))
    assert.Equal(t, []float64{0}, forest.FeatureImportances())
}

func TestSelectFromModel(t *testing.T) {
    X, y := thresholdData()
    forest := NewRandomForestClassifier(20, 5, 0)
    require.NoError(t, forest.Fit(X, y))

    selected, err := SelectFromModel(forest, []string{"azimuth", "noise"})
    require.NoError(t, err)
    assert.Equal(t, []string{"azimuth"}, selected)

    _, err = SelectFromModel(forest, []string{"azimuth"})
    assert.Error(t, err)
}

func TestSelectFromModelKeepsAllOnTies(t *testing.T) {
    forest := NewRandomForestClassifier(5, 3, 0)
    require.NoError(t, forest.Fit([][]float64{{1, 1}, {1, 1}}, []float64{0, 0}))

    selected, err := SelectFromModel(forest, []string{"a", "b"})
    require.NoError(t, err)
    assert.Equal(t, []string{"a", "b"}, selected)
}

func TestEstimatorKind(t *testing.T) {
    kind, err := ParseEstimatorKind("regressor")
    require.NoError(t, err)
    assert.Equal(t, Regressor, kind)
    assert.False(t, kind.IsClassifier())

    _, err = ParseEstimatorKind("svm")
    assert.Error(t, err)

    est, err := Classifier.Build(Params{Estimators: 15, MaxDepth: 6, RandomState: 0})
    require.NoError(t, err)
    assert.Equal(t, "RandomForestClassifier", est.GetName())

    X, y := thresholdData()
    require.NoError(t, est.Fit(X, y))
    assert.Equal(t, 1.0, Classifier.Score(est, X, y))
}

func TestForestGobRoundTrip(t *testing.T) {
    X, y := thresholdData()
    forest := NewRandomForestClassifier(5, 4, 1)
    require.NoError(t, forest.Fit(X, y))

    var est Estimator = forest
    var buf bytes.Buffer
    require.NoError(t, gob.NewEncoder(&buf).Encode(&est))

    var decoded Estimator
    require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

    assert.Equal(t, forest.Predict(X), decoded.Predict(X))
    assert.Equal(t, forest.FeatureImportances(), decoded.FeatureImportances())
}
