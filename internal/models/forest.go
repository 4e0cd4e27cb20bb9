package models

import (
    "fmt"
    "math"
    "math/rand"
    "sync"

    "gonum.org/v1/gonum/floats"
)

// RandomForest is a bagged ensemble of DecisionTrees. Tree i is grown on a
// bootstrap sample drawn with seed RandomState+i, so a fixed RandomState gives
// the same forest regardless of worker scheduling.
type RandomForest struct {
    BaseModel
    Task            Task
    NTrees          int
    MaxDepth        int
    MinSamplesSplit int
    MaxFeatures     int
    RandomState     int64
    Classes         []float64
    NFeatures       int
    Trees           []*DecisionTree
    Importances     []float64
    Parallel        bool
    MaxWorkers      int
}

func NewRandomForestClassifier(nTrees, maxDepth int, randomState int64) *RandomForest {
    return newRandomForest("RandomForestClassifier", Classification, nTrees, maxDepth, randomState)
}

func NewRandomForestRegressor(nTrees, maxDepth int, randomState int64) *RandomForest {
    return newRandomForest("RandomForestRegressor", Regression, nTrees, maxDepth, randomState)
}

func newRandomForest(name string, task Task, nTrees, maxDepth int, randomState int64) *RandomForest {
    if nTrees <= 0 {
        nTrees = 100
    }

    if maxDepth <= 0 {
        maxDepth = 10
    }

    return &RandomForest{
        Task:            task,
        NTrees:          nTrees,
        MaxDepth:        maxDepth,
        MinSamplesSplit: 2,
        RandomState:     randomState,
        Parallel:        true,
        MaxWorkers:      4,
        BaseModel: BaseModel{
            Name: name,
            Params: map[string]any{
                "n_estimators": nTrees,
                "max_depth":    maxDepth,
                "random_state": randomState,
            },
        },
    }
}

func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
    if err := validateTrainingSet(X, y); err != nil {
        return err
    }

    target := y
    if rf.Task == Classification {
        rf.Classes = ExtractClasses(y)
        target = encodeClasses(y, rf.Classes)
    }

    rf.NFeatures = len(X[0])
    rf.MaxFeatures = rf.NFeatures
    if rf.Task == Classification {
        rf.MaxFeatures = int(math.Sqrt(float64(rf.NFeatures)))
        if rf.MaxFeatures < 1 {
            rf.MaxFeatures = 1
        }
    }

    rf.Trees = make([]*DecisionTree, rf.NTrees)

    if rf.Parallel {
        rf.trainParallel(X, target)
    } else {
        rf.trainSequential(X, target)
    }

    rf.Importances = rf.aggregateImportances()
    return nil
}

func (rf *RandomForest) trainParallel(X [][]float64, y []float64) {
    var wg sync.WaitGroup

    workers := rf.MaxWorkers
    if workers <= 0 {
        workers = 1
    }
    if workers > rf.NTrees {
        workers = rf.NTrees
    }

    jobs := make(chan int, rf.NTrees)

    for w := 0; w < workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for i := range jobs {
                rf.Trees[i] = rf.trainSingleTree(X, y, i)
            }
        }()
    }

    for i := 0; i < rf.NTrees; i++ {
        jobs <- i
    }
    close(jobs)

    wg.Wait()
}

func (rf *RandomForest) trainSequential(X [][]float64, y []float64) {
    for i := 0; i < rf.NTrees; i++ {
        rf.Trees[i] = rf.trainSingleTree(X, y, i)
    }
}

func (rf *RandomForest) trainSingleTree(X [][]float64, y []float64, index int) *DecisionTree {
    r := rand.New(rand.NewSource(rf.RandomState + int64(index)))

    n := len(X)
    samples := make([]int, n)
    for i := range samples {
        samples[i] = r.Intn(n)
    }

    tree := NewDecisionTree(rf.Task, rf.MaxDepth, rf.MinSamplesSplit)
    tree.MaxFeatures = rf.MaxFeatures
    tree.grow(X, y, samples, len(rf.Classes), r)

    return tree
}

// aggregateImportances averages the per-tree importances and renormalizes
// them to sum to 1. A forest of single-leaf trees reports all zeros.
func (rf *RandomForest) aggregateImportances() []float64 {
    importances := make([]float64, rf.NFeatures)
    for _, tree := range rf.Trees {
        floats.Add(importances, tree.Importances)
    }

    total := floats.Sum(importances)
    if total > 0 {
        floats.Scale(1/total, importances)
    }
    return importances
}

func (rf *RandomForest) Predict(X [][]float64) []float64 {
    predictions := make([]float64, len(X))

    for i, sample := range X {
        if rf.Task == Regression {
            predictions[i] = rf.predictMean(sample)
        } else {
            predictions[i] = rf.Classes[argmax(rf.PredictProba(sample))]
        }
    }

    return predictions
}

// PredictProba averages the leaf class distributions of all trees. Entries
// follow the order of Classes.
func (rf *RandomForest) PredictProba(sample []float64) []float64 {
    proba := make([]float64, len(rf.Classes))
    if len(rf.Trees) == 0 {
        return proba
    }

    for _, tree := range rf.Trees {
        leaf := tree.predictSample(sample, tree.Root)
        floats.Add(proba, leaf.Distribution)
    }
    floats.Scale(1/float64(len(rf.Trees)), proba)

    return proba
}

func (rf *RandomForest) predictMean(sample []float64) float64 {
    sum := 0.0
    for _, tree := range rf.Trees {
        sum += tree.predictSample(sample, tree.Root).Value
    }
    return sum / float64(len(rf.Trees))
}

func (rf *RandomForest) FeatureImportances() []float64 {
    return rf.Importances
}

func (rf *RandomForest) String() string {
    return fmt.Sprintf("%s(n_estimators=%d, max_depth=%d, random_state=%d)",
        rf.Name, rf.NTrees, rf.MaxDepth, rf.RandomState)
}
