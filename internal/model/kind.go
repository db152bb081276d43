package model

import (
	"fmt"
	"strings"
)

// ModelKind selects a classifier family. The set is closed.
type ModelKind string

const (
	KindLogisticRegression ModelKind = "logistic_regression"
	KindNaiveBayes         ModelKind = "naive_bayes"
	KindSVM                ModelKind = "svm"
	KindRandomForest       ModelKind = "random_forest"
)

// AllModelKinds lists every supported classifier family in a stable order
func AllModelKinds() []ModelKind {
	return []ModelKind{
		KindLogisticRegression,
		KindNaiveBayes,
		KindSVM,
		KindRandomForest,
	}
}

// ParseModelKind converts a user-supplied name into a ModelKind
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logistic_regression", "logistic", "lr":
		return KindLogisticRegression, nil
	case "naive_bayes", "nb":
		return KindNaiveBayes, nil
	case "svm", "linear_svm":
		return KindSVM, nil
	case "random_forest", "rf":
		return KindRandomForest, nil
	default:
		return "", fmt.Errorf("unknown model type: %s (supported: logistic_regression, naive_bayes, svm, random_forest)", s)
	}
}

func (k ModelKind) String() string {
	return string(k)
}
