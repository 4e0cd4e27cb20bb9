package preprocessing

import (
    "fmt"
    "sort"
)

// LabelEncoder maps string labels to 0..n-1 in lexicographic label order.
type LabelEncoder struct {
    Classes    []string
    ClassToInt map[string]int
    IsFitted   bool
}

func NewLabelEncoder() *LabelEncoder {
    return &LabelEncoder{
        ClassToInt: make(map[string]int),
        IsFitted:   false,
    }
}

func (le *LabelEncoder) Fit(labels []string) {
    uniqueLabels := make(map[string]bool)
    for _, label := range labels {
        uniqueLabels[label] = true
    }

    le.Classes = make([]string, 0, len(uniqueLabels))
    for label := range uniqueLabels {
        le.Classes = append(le.Classes, label)
    }
    sort.Strings(le.Classes)

    le.ClassToInt = make(map[string]int, len(le.Classes))
    for idx, label := range le.Classes {
        le.ClassToInt[label] = idx
    }

    le.IsFitted = true
}

func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
    if !le.IsFitted {
        return nil, fmt.Errorf("LabelEncoder must be fitted before transform")
    }

    result := make([]int, len(labels))
    for i, label := range labels {
        if val, ok := le.ClassToInt[label]; ok {
            result[i] = val
        } else {
            return nil, fmt.Errorf("unknown label: %s", label)
        }
    }

    return result, nil
}

func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
    le.Fit(labels)
    return le.Transform(labels)
}

func (le *LabelEncoder) InverseTransform(encoded []int) ([]string, error) {
    if !le.IsFitted {
        return nil, fmt.Errorf("LabelEncoder must be fitted before inverse transform")
    }

    result := make([]string, len(encoded))
    for i, val := range encoded {
        if val < 0 || val >= len(le.Classes) {
            return nil, fmt.Errorf("unknown encoding: %d", val)
        }
        result[i] = le.Classes[val]
    }

    return result, nil
}
