package models

import (
    "fmt"
    "math/rand"
    "sort"
)

type TreeNode struct {
    IsLeaf       bool
    Value        float64
    Distribution []float64
    Feature      int
    Threshold    float64
    Left         *TreeNode
    Right        *TreeNode
    Samples      int
    Impurity     float64
}

// DecisionTree is a CART tree. Classification splits on gini impurity,
// regression on squared error. Samples go left when x[Feature] <= Threshold.
type DecisionTree struct {
    BaseModel
    Task                Task
    Root                *TreeNode
    MaxDepth            int
    MinSamplesSplit     int
    MinImpurityDecrease float64
    MaxFeatures         int
    Classes             []float64
    NClasses            int
    NFeatures           int
    Importances         []float64
}

func NewDecisionTree(task Task, maxDepth, minSamplesSplit int) *DecisionTree {
    if maxDepth <= 0 {
        maxDepth = 10
    }

    if minSamplesSplit <= 0 {
        minSamplesSplit = 2
    }

    return &DecisionTree{
        Task:            task,
        MaxDepth:        maxDepth,
        MinSamplesSplit: minSamplesSplit,
        BaseModel: BaseModel{
            Name: "DecisionTree",
            Params: map[string]any{
                "max_depth":         maxDepth,
                "min_samples_split": minSamplesSplit,
            },
        },
    }
}

func (dt *DecisionTree) Fit(X [][]float64, y []float64) error {
    if err := validateTrainingSet(X, y); err != nil {
        return err
    }

    target := y
    if dt.Task == Classification {
        dt.Classes = ExtractClasses(y)
        target = encodeClasses(y, dt.Classes)
    }

    samples := make([]int, len(X))
    for i := range samples {
        samples[i] = i
    }

    dt.grow(X, target, samples, len(dt.Classes), rand.New(rand.NewSource(0)))
    return nil
}

// grow builds the tree over the given sample indices. For classification y
// holds class indices in [0, nClasses). Indices may repeat (bootstrap).
func (dt *DecisionTree) grow(X [][]float64, y []float64, samples []int, nClasses int, r *rand.Rand) {
    dt.NClasses = nClasses
    dt.NFeatures = len(X[0])
    dt.Importances = make([]float64, dt.NFeatures)

    dt.Root = dt.buildTree(X, y, samples, 0, r)

    total := 0.0
    for _, v := range dt.Importances {
        total += v
    }
    if total > 0 {
        for i := range dt.Importances {
            dt.Importances[i] /= total
        }
    }
}

func (dt *DecisionTree) buildTree(X [][]float64, y []float64, samples []int, depth int, r *rand.Rand) *TreeNode {
    node := &TreeNode{
        Samples: len(samples),
    }

    node.Impurity = dt.impurity(y, samples)
    dt.setLeafValue(node, y, samples)

    if depth >= dt.MaxDepth ||
       len(samples) < dt.MinSamplesSplit ||
       node.Impurity <= 1e-12 {

        node.IsLeaf = true
        return node
    }

    bestFeature, bestThreshold, bestDecrease, found := dt.findBestSplit(X, y, samples, node.Impurity, r)

    if !found || bestDecrease < dt.MinImpurityDecrease {
        node.IsLeaf = true
        return node
    }

    leftSamples, rightSamples := dt.splitData(X, samples, bestFeature, bestThreshold)

    if len(leftSamples) == 0 || len(rightSamples) == 0 {
        node.IsLeaf = true
        return node
    }

    node.Feature = bestFeature
    node.Threshold = bestThreshold
    dt.Importances[bestFeature] += float64(len(samples)) * bestDecrease

    node.Left = dt.buildTree(X, y, leftSamples, depth+1, r)
    node.Right = dt.buildTree(X, y, rightSamples, depth+1, r)

    return node
}

// candidateFeatures returns the order in which features are tried and how
// many non-constant ones to evaluate before stopping.
func (dt *DecisionTree) candidateFeatures(r *rand.Rand) ([]int, int) {
    if dt.MaxFeatures <= 0 || dt.MaxFeatures >= dt.NFeatures {
        features := make([]int, dt.NFeatures)
        for i := range features {
            features[i] = i
        }
        return features, dt.NFeatures
    }
    return r.Perm(dt.NFeatures), dt.MaxFeatures
}

// findBestSplit sweeps candidate features in sorted order and returns the
// split with the largest impurity decrease relative to the node.
func (dt *DecisionTree) findBestSplit(X [][]float64, y []float64, samples []int, parentImpurity float64, r *rand.Rand) (int, float64, float64, bool) {
    bestFeature := 0
    bestThreshold := 0.0
    bestDecrease := 0.0
    found := false

    n := float64(len(samples))
    sorted := make([]int, len(samples))

    order, limit := dt.candidateFeatures(r)
    visited := 0

    for _, feature := range order {
        if visited >= limit {
            break
        }

        copy(sorted, samples)
        sort.SliceStable(sorted, func(i, j int) bool {
            return X[sorted[i]][feature] < X[sorted[j]][feature]
        })

        // constant features do not count against the draw
        if X[sorted[0]][feature] == X[sorted[len(sorted)-1]][feature] {
            continue
        }
        visited++

        sweep := dt.newSweep(y, sorted)

        for i := 0; i < len(sorted)-1; i++ {
            sweep.moveLeft(y[sorted[i]])

            current := X[sorted[i]][feature]
            next := X[sorted[i+1]][feature]
            if current == next {
                continue
            }

            nLeft := float64(i + 1)
            nRight := n - nLeft
            weighted := (nLeft*sweep.leftImpurity() + nRight*sweep.rightImpurity()) / n
            decrease := parentImpurity - weighted

            if !found || decrease > bestDecrease {
                threshold := current + (next-current)/2
                if threshold == next {
                    threshold = current
                }
                bestFeature = feature
                bestThreshold = threshold
                bestDecrease = decrease
                found = true
            }
        }
    }

    return bestFeature, bestThreshold, bestDecrease, found
}

func (dt *DecisionTree) Predict(X [][]float64) []float64 {
    predictions := make([]float64, len(X))

    for i, sample := range X {
        leaf := dt.predictSample(sample, dt.Root)
        if dt.Task == Classification && len(dt.Classes) > 0 {
            predictions[i] = dt.Classes[int(leaf.Value)]
        } else {
            predictions[i] = leaf.Value
        }
    }

    return predictions
}

func (dt *DecisionTree) predictSample(sample []float64, node *TreeNode) *TreeNode {
    if node.IsLeaf {
        return node
    }

    if sample[node.Feature] <= node.Threshold {
        return dt.predictSample(sample, node.Left)
    }
    return dt.predictSample(sample, node.Right)
}

func (dt *DecisionTree) FeatureImportances() []float64 {
    return dt.Importances
}

func (dt *DecisionTree) impurity(y []float64, samples []int) float64 {
    if len(samples) == 0 {
        return 0.0
    }

    if dt.Task == Regression {
        return calculateVariance(y, samples)
    }
    return calculateGini(y, samples, dt.NClasses)
}

func (dt *DecisionTree) setLeafValue(node *TreeNode, y []float64, samples []int) {
    if len(samples) == 0 {
        return
    }

    if dt.Task == Regression {
        sum := 0.0
        for _, s := range samples {
            sum += y[s]
        }
        node.Value = sum / float64(len(samples))
        return
    }

    counts := make([]float64, dt.NClasses)
    for _, s := range samples {
        counts[int(y[s])]++
    }
    for i := range counts {
        counts[i] /= float64(len(samples))
    }
    node.Distribution = counts
    node.Value = float64(argmax(counts))
}

func (dt *DecisionTree) splitData(X [][]float64, samples []int, feature int, threshold float64) ([]int, []int) {
    var leftSamples, rightSamples []int

    for _, s := range samples {
        if X[s][feature] <= threshold {
            leftSamples = append(leftSamples, s)
        } else {
            rightSamples = append(rightSamples, s)
        }
    }

    return leftSamples, rightSamples
}

func calculateGini(y []float64, samples []int, nClasses int) float64 {
    counts := make([]float64, nClasses)
    for _, s := range samples {
        counts[int(y[s])]++
    }
    return gini(counts, float64(len(samples)))
}

func calculateVariance(y []float64, samples []int) float64 {
    sum, sumSq := 0.0, 0.0
    for _, s := range samples {
        sum += y[s]
        sumSq += y[s] * y[s]
    }
    return mse(sum, sumSq, float64(len(samples)))
}

func validateTrainingSet(X [][]float64, y []float64) error {
    if len(X) == 0 {
        return fmt.Errorf("cannot fit on empty dataset")
    }
    if len(X) != len(y) {
        return fmt.Errorf("x and y must have the same length: %d vs %d", len(X), len(y))
    }
    if len(X[0]) == 0 {
        return fmt.Errorf("features cannot be empty")
    }
    return nil
}
