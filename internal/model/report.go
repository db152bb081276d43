package model

import "time"

// ClassMetrics holds per-class precision/recall/F1
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"` // Number of true instances of the class
}

// EvaluationReport compares predictions against ground truth on a held-out split
type EvaluationReport struct {
	Accuracy    float64                  `json:"accuracy"`
	Classes     [NumClasses]ClassMetrics `json:"classes"` // Indexed by Sentiment
	MacroAvg    ClassMetrics             `json:"macro_avg"`
	WeightedAvg ClassMetrics             `json:"weighted_avg"`

	// Confusion[true][predicted]
	Confusion [NumClasses][NumClasses]int `json:"confusion_matrix"`
}

// Total returns the number of evaluated samples
func (r *EvaluationReport) Total() int {
	n := 0
	for _, row := range r.Confusion {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// TrainingSummary is everything written to the evaluation sidecar
type TrainingSummary struct {
	RunID          string           `json:"run_id"`
	Kind           ModelKind        `json:"model_type"`
	TrainSamples   int              `json:"training_samples"`
	TestSamples    int              `json:"testing_samples"`
	MaxFeatures    int              `json:"max_features"`
	VocabularySize int              `json:"vocabulary_size"`
	TrainingTime   time.Duration    `json:"training_time_ns"`
	Report         EvaluationReport `json:"evaluation"`
}
