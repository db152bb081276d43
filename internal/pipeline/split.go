package pipeline

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/ppiankov/revsent/internal/model"
)

// ErrSplitTooSmall is returned when a corpus cannot yield both a train and a test set
var ErrSplitTooSmall = errors.New("not enough labeled records for a train/test split")

// stratifiedSplit partitions indices 0..len(labels)-1 so that each class
// contributes round(testFraction*count) records to the test set, at least one
// record of each class staying in training. Both index sets are returned in
// source order.
func stratifiedSplit(labels []model.Sentiment, testFraction float64, seed int64) (train, test []int, err error) {
	var byClass [model.NumClasses][]int
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, idx := range byClass {
		if len(idx) == 0 {
			continue
		}
		nTest := int(math.Round(testFraction * float64(len(idx))))
		if nTest > len(idx)-1 {
			nTest = len(idx) - 1
		}

		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, ErrSplitTooSmall
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
