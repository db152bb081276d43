package model

// RawRecord is one row of the training corpus
type RawRecord struct {
	Rating int    `json:"rating"` // Star rating, 1-5
	Title  string `json:"title"`  // Review title (carried, not used for features)
	Text   string `json:"text"`   // Review body
}

// LabeledRecord is a RawRecord that survived label derivation
type LabeledRecord struct {
	RawRecord
	Sentiment Sentiment `json:"sentiment"`
}

// ProcessedRecord carries the normalized text used for vectorization
type ProcessedRecord struct {
	LabeledRecord
	NormalizedText string `json:"normalized_text"` // Lowercase alphabetic lemmas, space-joined
}

// Sentiment is the binary target label
type Sentiment int

const (
	Negative Sentiment = 0
	Positive Sentiment = 1
)

// NumClasses is the number of sentiment classes
const NumClasses = 2

func (s Sentiment) String() string {
	switch s {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the two known labels
func (s Sentiment) Valid() bool {
	return s == Negative || s == Positive
}
