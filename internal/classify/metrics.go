package classify

import "github.com/ppiankov/revsent/internal/model"

// Score builds an evaluation report from parallel slices of true and
// predicted labels. Undefined ratios (no predictions or no support for a
// class) are reported as zero.
func Score(truth, predicted []model.Sentiment) model.EvaluationReport {
	var r model.EvaluationReport

	n := len(truth)
	if len(predicted) < n {
		n = len(predicted)
	}

	correct := 0
	for i := 0; i < n; i++ {
		t, p := truth[i], predicted[i]
		if !t.Valid() || !p.Valid() {
			continue
		}
		r.Confusion[t][p]++
		if t == p {
			correct++
		}
	}

	total := r.Total()
	if total > 0 {
		r.Accuracy = float64(correct) / float64(total)
	}

	for c := 0; c < model.NumClasses; c++ {
		tp := r.Confusion[c][c]
		support, predictedAs := 0, 0
		for k := 0; k < model.NumClasses; k++ {
			support += r.Confusion[c][k]
			predictedAs += r.Confusion[k][c]
		}

		m := model.ClassMetrics{
			Precision: ratio(tp, predictedAs),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m

		r.MacroAvg.Precision += m.Precision / model.NumClasses
		r.MacroAvg.Recall += m.Recall / model.NumClasses
		r.MacroAvg.F1 += m.F1 / model.NumClasses
		if total > 0 {
			w := float64(support) / float64(total)
			r.WeightedAvg.Precision += w * m.Precision
			r.WeightedAvg.Recall += w * m.Recall
			r.WeightedAvg.F1 += w * m.F1
		}
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total

	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
