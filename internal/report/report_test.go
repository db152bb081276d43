package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/model"
)

func sampleSummary() model.TrainingSummary {
	n, p := model.Negative, model.Positive
	truth := []model.Sentiment{n, n, n, n, p, p, p, p, p, p}
	pred := []model.Sentiment{n, n, n, p, p, p, p, p, p, n}

	return model.TrainingSummary{
		RunID:          "run-42",
		Kind:           model.KindNaiveBayes,
		TrainSamples:   40,
		TestSamples:    10,
		MaxFeatures:    20000,
		VocabularySize: 321,
		TrainingTime:   1500 * time.Millisecond,
		Report:         classify.Score(truth, pred),
	}
}

func TestConfusionMatrix(t *testing.T) {
	r := model.EvaluationReport{Confusion: [2][2]int{{950, 50}, {7, 1003}}}
	want := "[[ 950   50]\n [   7 1003]]"
	if got := ConfusionMatrix(r); got != want {
		t.Errorf("ConfusionMatrix =\n%s\nwant\n%s", got, want)
	}

	small := model.EvaluationReport{Confusion: [2][2]int{{3, 1}, {1, 5}}}
	if got := ConfusionMatrix(small); got != "[[3 1]\n [1 5]]" {
		t.Errorf("ConfusionMatrix = %q", got)
	}
}

func TestClassificationReport(t *testing.T) {
	got := ClassificationReport(sampleSummary().Report)
	lines := strings.Split(got, "\n")

	if !strings.Contains(lines[0], "precision") || !strings.HasSuffix(lines[0], "support") {
		t.Errorf("unexpected header %q", lines[0])
	}
	// negative: tp=3, predicted as negative=4, support=4
	if want := "    negative       0.75      0.75      0.75         4"; lines[2] != want {
		t.Errorf("negative row = %q, want %q", lines[2], want)
	}
	if !strings.HasPrefix(lines[5], "    accuracy") || !strings.HasSuffix(lines[5], "0.80        10") {
		t.Errorf("accuracy row = %q", lines[5])
	}
	if !strings.HasPrefix(lines[7], "weighted avg") {
		t.Errorf("weighted row = %q", lines[7])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleSummary()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Model: naive_bayes\n",
		"Run ID: run-42\n",
		"Training samples: 40\n",
		"Testing samples: 10\n",
		"Training time: 1.50 seconds\n",
		"Max features: 20000\n",
		"Vocabulary size: 321\n",
		"Accuracy: 0.8000\n",
		"Classification Report:\n",
		"Confusion Matrix:\n[[3 1]\n [1 5]]\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleSummary()); err != nil {
		t.Fatal(err)
	}

	var decoded model.TrainingSummary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Kind != model.KindNaiveBayes || decoded.Report.Confusion[1][1] != 5 {
		t.Errorf("unexpected decoded summary: %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"model_type": "naive_bayes"`) {
		t.Errorf("expected snake_case keys:\n%s", buf.String())
	}
}

func TestWriteComparisonAndBest(t *testing.T) {
	a := sampleSummary()
	b := sampleSummary()
	b.Kind = model.KindSVM
	b.Report.Accuracy = 0.9
	c := sampleSummary()
	c.Kind = model.KindRandomForest
	c.Report.Accuracy = 0.9

	best, ok := Best([]model.TrainingSummary{a, b, c})
	if !ok || best.Kind != model.KindSVM {
		t.Errorf("Best = %s, want svm (first of the tie)", best.Kind)
	}
	if _, ok := Best(nil); ok {
		t.Error("Best of nothing should report false")
	}

	var buf bytes.Buffer
	if err := WriteComparison(&buf, []model.TrainingSummary{a, b, c}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "Model: ") != 3 {
		t.Errorf("expected three model blocks:\n%s", out)
	}
	if !strings.Contains(out, "Best model: svm (accuracy 0.9000)") {
		t.Errorf("missing best model line:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", ComparisonFilename)
	err := WriteFile(path, func(w io.Writer) error {
		return WriteComparison(w, []model.TrainingSummary{sampleSummary()})
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Model: naive_bayes") {
		t.Errorf("unexpected file content: %q", data)
	}
}
