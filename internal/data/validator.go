package data

import (
	"fmt"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// ValidateTrainingData checks that a frame can be used to fit a model for the
// given dependent column.
func (dv *DataValidator) ValidateTrainingData(frame *Frame, dependent string) error {
	if frame.Len() == 0 {
		return fmt.Errorf("dataset is empty")
	}

	if !frame.Has(dependent) {
		return fmt.Errorf("dependent variable %s is missing in training data", dependent)
	}

	for i, value := range frame.Column(dependent) {
		if value == nil {
			return fmt.Errorf("missing dependent variable %s at sample %d", dependent, i)
		}
	}

	return nil
}
