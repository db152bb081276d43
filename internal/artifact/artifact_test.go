package artifact

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/label"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

var trainDocs = []string{
	"great product love", "good value great", "love fit good",
	"terrible item awful", "bad box hate", "awful size terrible",
}

var trainLabels = []model.Sentiment{
	model.Positive, model.Positive, model.Positive,
	model.Negative, model.Negative, model.Negative,
}

func trained(t *testing.T, kind model.ModelKind) (*vectorize.TfidfVectorizer, classify.Classifier) {
	t.Helper()
	tv := vectorize.NewTfidfVectorizer(50)
	X, err := tv.FitTransform(trainDocs)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	clf, err := classify.New(kind, classify.Options{Trees: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := clf.Train(X, trainLabels); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return tv, clf
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	probes := append([]string{"great", "awful", "unknown words only", ""}, trainDocs...)

	for _, kind := range model.AllModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			tv, clf := trained(t, kind)
			path := filepath.Join(t.TempDir(), "nested", "dir", "model.gob.gz")

			meta := Metadata{RunID: "run-1", LabelPolicy: label.PolicyVersion, TrainSamples: 6}
			if err := Save(path, tv, clf, meta); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			a, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if a.Kind != kind || a.Meta.Kind != kind {
				t.Errorf("kind = %s / %s, want %s", a.Kind, a.Meta.Kind, kind)
			}
			if a.Meta.RunID != "run-1" || a.Meta.LabelPolicy != label.PolicyVersion {
				t.Errorf("metadata not preserved: %+v", a.Meta)
			}
			if a.Meta.Checksum == "" || a.Meta.SizeBytes == 0 {
				t.Error("checksum and size should be filled in")
			}
			if a.Meta.VocabularySize != tv.VocabSize() {
				t.Errorf("vocabulary size = %d, want %d", a.Meta.VocabularySize, tv.VocabSize())
			}
			if !a.Classifier.IsTrained() {
				t.Error("loaded classifier should be trained")
			}

			for _, p := range probes {
				xOrig, _ := tv.Transform(p)
				xLoad, err := a.Vectorizer.Transform(p)
				if err != nil {
					t.Fatalf("loaded Transform failed: %v", err)
				}
				want, _ := clf.Predict(xOrig)
				got, err := a.Classifier.Predict(xLoad)
				if err != nil {
					t.Fatalf("loaded Predict failed: %v", err)
				}
				if got != want {
					t.Errorf("Predict(%q) = %s after reload, want %s", p, got, want)
				}
			}
		})
	}
}

func TestSave_RejectsUntrained(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob.gz")

	tv, clf := trained(t, model.KindNaiveBayes)
	fresh, _ := classify.New(model.KindNaiveBayes, classify.Options{})

	if err := Save(path, tv, fresh, Metadata{}); !errors.Is(err, classify.ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
	if err := Save(path, vectorize.NewTfidfVectorizer(10), clf, Metadata{}); !errors.Is(err, vectorize.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("nothing should be written, found %d entries", len(entries))
	}
}

func TestSave_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob.gz")

	tv, lr := trained(t, model.KindLogisticRegression)
	if err := Save(path, tv, lr, Metadata{RunID: "first"}); err != nil {
		t.Fatal(err)
	}
	tv2, nb := trained(t, model.KindNaiveBayes)
	if err := Save(path, tv2, nb, Metadata{RunID: "second"}); err != nil {
		t.Fatal(err)
	}

	a, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != model.KindNaiveBayes || a.Meta.RunID != "second" {
		t.Errorf("expected second save to win, got %s/%s", a.Kind, a.Meta.RunID)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.gob.gz"))
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected error to wrap fs.ErrNotExist, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.gob.gz")
	if err := os.WriteFile(garbage, []byte("definitely not a model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("garbage: expected ErrCorruptArtifact, got %v", err)
	}

	// Valid envelope with a tampered checksum
	tv, clf := trained(t, model.KindLogisticRegression)
	good := filepath.Join(dir, "good.gob.gz")
	if err := Save(good, tv, clf, Metadata{}); err != nil {
		t.Fatal(err)
	}
	env := readRawEnvelope(t, good)
	env.Metadata.Checksum = "0000"
	tampered := filepath.Join(dir, "tampered.gob.gz")
	writeRawEnvelope(t, tampered, env)
	if _, err := Load(tampered); !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("tampered checksum: expected ErrCorruptArtifact, got %v", err)
	}

	// Valid envelope whose metadata kind disagrees with the payload
	env = readRawEnvelope(t, good)
	env.Metadata.Kind = model.KindSVM
	mismatch := filepath.Join(dir, "mismatch.gob.gz")
	writeRawEnvelope(t, mismatch, env)
	if _, err := Load(mismatch); !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("kind mismatch: expected ErrCorruptArtifact, got %v", err)
	}

	// Valid gzip of an empty payload
	env = readRawEnvelope(t, good)
	var raw bytes.Buffer
	_ = gob.NewEncoder(&raw).Encode(payload{Kind: model.KindLogisticRegression})
	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	_, _ = gzw.Write(raw.Bytes())
	_ = gzw.Close()
	env.CompressedData = compressed.Bytes()
	env.Metadata.Checksum = checksumOf(raw.Bytes())
	empty := filepath.Join(dir, "empty.gob.gz")
	writeRawEnvelope(t, empty, env)
	if _, err := Load(empty); !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("empty payload: expected ErrCorruptArtifact, got %v", err)
	}
}

func readRawEnvelope(t *testing.T, path string) envelope {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		t.Fatal(err)
	}
	return env
}

func writeRawEnvelope(t *testing.T, path string, env envelope) {
	t.Helper()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}
