package pipeline

import "fmt"

// Stage is a step of a training run
type Stage int

const (
	StageIdle Stage = iota
	StageLoading
	StageLabeling
	StageNormalizing
	StageVectorizing
	StageTraining
	StageEvaluating
	StagePersisting
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageLoading:     "loading",
	StageLabeling:    "labeling",
	StageNormalizing: "normalizing",
	StageVectorizing: "vectorizing",
	StageTraining:    "training",
	StageEvaluating:  "evaluating",
	StagePersisting:  "persisting",
	StageDone:        "done",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError records the stage a run failed in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
