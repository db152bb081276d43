// Package label maps star ratings onto binary sentiment labels.
//
// The rule is fixed: 1-2 stars are negative, 3 stars are neutral and dropped,
// 4-5 stars are positive. Changing it changes the target distribution, so the
// rule is identified by PolicyVersion and that string is stored with every
// trained artifact.
package label

import "github.com/ppiankov/revsent/internal/model"

// PolicyVersion identifies the rating-to-label rule
const PolicyVersion = "rating-1-2-neg/3-drop/4-5-pos"

// Derive returns the label for a rating. ok is false for neutral ratings.
func Derive(rating int) (s model.Sentiment, ok bool) {
	switch {
	case rating <= 2:
		return model.Negative, true
	case rating == 3:
		return 0, false
	default:
		return model.Positive, true
	}
}

// Apply labels records in order, dropping neutral ones
func Apply(records []model.RawRecord) []model.LabeledRecord {
	out := make([]model.LabeledRecord, 0, len(records))
	for _, r := range records {
		s, ok := Derive(r.Rating)
		if !ok {
			continue
		}
		out = append(out, model.LabeledRecord{RawRecord: r, Sentiment: s})
	}
	return out
}

// Counts tallies labeled records per class
func Counts(records []model.LabeledRecord) (negative, positive int) {
	for _, r := range records {
		if r.Sentiment == model.Positive {
			positive++
		} else {
			negative++
		}
	}
	return negative, positive
}
