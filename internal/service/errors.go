package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the caller must fix.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a recipe that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRecommendationFailed matches every error returned by Recommend.
	ErrRecommendationFailed = errors.New("recommendation failed")

	// ErrRejected is returned when the model declines to recommend a dish
	// because the request extras are unrelated to food.
	ErrRejected = errors.New("request rejected by model")
	// ErrEmptyIngredients is returned when the ingredient answer is blank after cleanup.
	ErrEmptyIngredients = errors.New("empty ingredient list")
)

// Stage names the step of the recommendation pipeline that failed.
type Stage string

const (
	StagePrompt      Stage = "prompt"
	StageParse       Stage = "parse"
	StageRejected    Stage = "rejected"
	StageLookup      Stage = "lookup"
	StageIngredients Stage = "ingredients"
	StagePersist     Stage = "persist"
)

// PipelineError reports where a recommendation failed. Callers outside the
// service only need errors.Is(err, ErrRecommendationFailed).
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("recommendation failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is makes every PipelineError match ErrRecommendationFailed.
func (e *PipelineError) Is(target error) bool {
	return target == ErrRecommendationFailed
}

func stageErr(stage Stage, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}
