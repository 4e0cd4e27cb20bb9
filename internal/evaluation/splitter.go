package evaluation

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplitter partitions row indices into a train and a test set.
// A testSize up to 1 is a proportion of the rows (rounded up), anything
// larger is an absolute number of test rows.
type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

// TestCount returns how many of n rows go to the test set.
func (tts *TrainTestSplitter) TestCount(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot split empty dataset")
	}

	if tts.testSize <= 0 {
		return 0, fmt.Errorf("test size must be positive, got %v", tts.testSize)
	}

	var testCount int
	if tts.testSize <= 1 {
		testCount = int(math.Ceil(tts.testSize * float64(n)))
	} else {
		testCount = int(tts.testSize)
	}

	if testCount >= n {
		return 0, fmt.Errorf("test size %v leaves no training samples out of %d", tts.testSize, n)
	}
	return testCount, nil
}

// Split returns the train and test row indices. The test rows come first in
// the permutation, so equal seeds and sizes give equal splits.
func (tts *TrainTestSplitter) Split(n int) ([]int, []int, error) {
	testCount, err := tts.TestCount(n)
	if err != nil {
		return nil, nil, err
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if tts.shuffle {
		rng := rand.New(rand.NewSource(tts.randomSeed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	test := append([]int(nil), indices[:testCount]...)
	train := append([]int(nil), indices[testCount:]...)

	return train, test, nil
}
