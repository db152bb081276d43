// Package report renders evaluation results for humans and tools.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/revsent/internal/model"
)

const (
	// ComparisonFilename is written by a model comparison run
	ComparisonFilename = "model_comparison.txt"

	// TextSuffix and JSONSuffix complete "{kind}_v{N}" sidecar names
	TextSuffix = "_evaluation.txt"
	JSONSuffix = "_evaluation.json"
)

// labelWidth fits "weighted avg", the longest row label
const labelWidth = 12

var classNames = [model.NumClasses]string{
	model.Negative: model.Negative.String(),
	model.Positive: model.Positive.String(),
}

// WriteText renders the human-readable evaluation sidecar
func WriteText(w io.Writer, s model.TrainingSummary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Model: %s\n", s.Kind)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Training samples: %d\n", s.TrainSamples)
	fmt.Fprintf(&b, "Testing samples: %d\n", s.TestSamples)
	fmt.Fprintf(&b, "Training time: %.2f seconds\n", s.TrainingTime.Seconds())
	fmt.Fprintf(&b, "Max features: %d\n", s.MaxFeatures)
	fmt.Fprintf(&b, "Vocabulary size: %d\n", s.VocabularySize)
	writeEvaluation(&b, s.Report)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeEvaluation(b *strings.Builder, r model.EvaluationReport) {
	fmt.Fprintf(b, "Accuracy: %.4f\n", r.Accuracy)
	b.WriteString("Classification Report:\n")
	b.WriteString(ClassificationReport(r))
	b.WriteString("\nConfusion Matrix:\n")
	b.WriteString(ConfusionMatrix(r))
	b.WriteString("\n")
}

// ClassificationReport renders the per-class table with two decimals
func ClassificationReport(r model.EvaluationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", labelWidth, "", "precision", "recall", "f1-score", "support")
	for c, m := range r.Classes {
		row(&b, classNames[c], m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", labelWidth, "accuracy", "", "", r.Accuracy, r.Total())
	row(&b, "macro avg", r.MacroAvg)
	row(&b, "weighted avg", r.WeightedAvg)

	return b.String()
}

func row(b *strings.Builder, name string, m model.ClassMetrics) {
	fmt.Fprintf(b, "%*s  %9.2f %9.2f %9.2f %9d\n", labelWidth, name, m.Precision, m.Recall, m.F1, m.Support)
}

// ConfusionMatrix renders rows of true labels as [[tn fp]\n [fn tp]]
func ConfusionMatrix(r model.EvaluationReport) string {
	width := 1
	for _, rowCounts := range r.Confusion {
		for _, c := range rowCounts {
			if n := len(strconv.Itoa(c)); n > width {
				width = n
			}
		}
	}

	var b strings.Builder
	b.WriteString("[")
	for i, rowCounts := range r.Confusion {
		if i > 0 {
			b.WriteString("\n ")
		}
		b.WriteString("[")
		for j, c := range rowCounts {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%*d", width, c)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

// WriteJSON renders the machine-readable sidecar
func WriteJSON(w io.Writer, s model.TrainingSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteComparison renders one block per model
func WriteComparison(w io.Writer, summaries []model.TrainingSummary) error {
	var b strings.Builder

	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Model: %s\n", s.Kind)
		fmt.Fprintf(&b, "Training time: %.2f seconds\n", s.TrainingTime.Seconds())
		writeEvaluation(&b, s.Report)
	}

	if best, ok := Best(summaries); ok {
		fmt.Fprintf(&b, "\nBest model: %s (accuracy %.4f)\n", best.Kind, best.Report.Accuracy)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Best returns the summary with the highest accuracy; earlier entries win ties
func Best(summaries []model.TrainingSummary) (model.TrainingSummary, bool) {
	if len(summaries) == 0 {
		return model.TrainingSummary{}, false
	}
	best := summaries[0]
	for _, s := range summaries[1:] {
		if s.Report.Accuracy > best.Report.Accuracy {
			best = s
		}
	}
	return best, true
}

// WriteFile renders into memory and writes path in one step
func WriteFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
