package models

// sweep tracks the statistics of both sides while samples move left one at
// a time during a split search.
type sweep struct {
    task       Task
    leftCount  []float64
    rightCount []float64
    nLeft      float64
    nRight     float64
    sumLeft    float64
    sumRight   float64
    sqLeft     float64
    sqRight    float64
}

func (dt *DecisionTree) newSweep(y []float64, samples []int) *sweep {
    s := &sweep{task: dt.Task, nRight: float64(len(samples))}

    if dt.Task == Classification {
        s.leftCount = make([]float64, dt.NClasses)
        s.rightCount = make([]float64, dt.NClasses)
        for _, i := range samples {
            s.rightCount[int(y[i])]++
        }
        return s
    }

    for _, i := range samples {
        s.sumRight += y[i]
        s.sqRight += y[i] * y[i]
    }
    return s
}

func (s *sweep) moveLeft(value float64) {
    s.nLeft++
    s.nRight--

    if s.task == Classification {
        s.leftCount[int(value)]++
        s.rightCount[int(value)]--
        return
    }

    s.sumLeft += value
    s.sumRight -= value
    s.sqLeft += value * value
    s.sqRight -= value * value
}

func (s *sweep) leftImpurity() float64 {
    if s.task == Classification {
        return gini(s.leftCount, s.nLeft)
    }
    return mse(s.sumLeft, s.sqLeft, s.nLeft)
}

func (s *sweep) rightImpurity() float64 {
    if s.task == Classification {
        return gini(s.rightCount, s.nRight)
    }
    return mse(s.sumRight, s.sqRight, s.nRight)
}

func gini(counts []float64, n float64) float64 {
    if n <= 0 {
        return 0
    }
    impurity := 1.0
    for _, c := range counts {
        p := c / n
        impurity -= p * p
    }
    return impurity
}

func mse(sum, sq, n float64) float64 {
    if n <= 0 {
        return 0
    }
    mean := sum / n
    v := sq/n - mean*mean
    if v < 0 {
        return 0
    }
    return v
}
