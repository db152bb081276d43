// Package artifact persists a fitted vectorizer and classifier as one file.
//
// # Storage Format
//
// The payload (model kind plus the binary encodings of the vectorizer and
// the classifier) is gob-encoded, checksummed with SHA-256, gzip-compressed
// and wrapped in a gob envelope together with its Metadata. Files are written
// to a temporary name in the destination directory and renamed into place,
// so readers never observe a partial artifact.
package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

var (
	// ErrArtifactNotFound is returned by Load when the file does not exist
	ErrArtifactNotFound = fmt.Errorf("model artifact not found: %w", fs.ErrNotExist)

	// ErrCorruptArtifact is returned when a file exists but cannot be decoded
	ErrCorruptArtifact = errors.New("corrupt model artifact")
)

// Metadata describes a stored artifact
type Metadata struct {
	RunID              string          `json:"run_id"`
	Kind               model.ModelKind `json:"kind"`
	Version            int             `json:"version"`
	LabelPolicy        string          `json:"label_policy"`
	TrainedAt          time.Time       `json:"trained_at"`
	SavedAt            time.Time       `json:"saved_at"`
	TrainSamples       int             `json:"train_samples"`
	TestSamples        int             `json:"test_samples"`
	MaxFeatures        int             `json:"max_features"`
	VocabularySize     int             `json:"vocabulary_size"`
	TrainingDurationMS int64           `json:"training_duration_ms"`
	Checksum           string          `json:"checksum"`
	SizeBytes          int64           `json:"size_bytes"`
}

// Artifact is a loaded, ready-to-predict model
type Artifact struct {
	Kind       model.ModelKind
	Vectorizer *vectorize.TfidfVectorizer
	Classifier classify.Classifier
	Meta       Metadata
}

// payload is the checksummed content
type payload struct {
	Kind       model.ModelKind
	Vectorizer []byte
	Classifier []byte
}

// envelope is the on-disk format
type envelope struct {
	Metadata       Metadata
	CompressedData []byte
}

// Save writes vec and clf to path, replacing any existing file
func Save(path string, vec *vectorize.TfidfVectorizer, clf classify.Classifier, meta Metadata) error {
	_, err := save(path, vec, clf, meta)
	return err
}

func save(path string, vec *vectorize.TfidfVectorizer, clf classify.Classifier, meta Metadata) (Metadata, error) {
	if vec == nil || !vec.IsFitted() {
		return meta, fmt.Errorf("save artifact: %w", vectorize.ErrNotFitted)
	}
	if clf == nil || !clf.IsTrained() {
		return meta, fmt.Errorf("save artifact: %w", classify.ErrNotTrained)
	}

	vecData, err := vec.MarshalBinary()
	if err != nil {
		return meta, fmt.Errorf("encode vectorizer: %w", err)
	}
	clfData, err := clf.MarshalBinary()
	if err != nil {
		return meta, fmt.Errorf("encode classifier: %w", err)
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(payload{Kind: clf.Kind(), Vectorizer: vecData, Classifier: clfData}); err != nil {
		return meta, fmt.Errorf("encode payload: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return meta, fmt.Errorf("compress payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return meta, fmt.Errorf("finalize compression: %w", err)
	}

	meta.Kind = clf.Kind()
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()
	if meta.VocabularySize == 0 {
		meta.VocabularySize = vec.VocabSize()
	}

	var file bytes.Buffer
	if err := gob.NewEncoder(&file).Encode(envelope{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return meta, fmt.Errorf("encode envelope: %w", err)
	}

	if err := writeAtomic(path, file.Bytes()); err != nil {
		return meta, err
	}
	return meta, nil
}

// writeAtomic writes data to a temp file next to path, syncs it and renames it over path
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// Load reads and verifies the artifact at path
func Load(path string) (*Artifact, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return nil, corrupt(path, "decompress: %v", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, corrupt(path, "decompress: %v", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Metadata.Checksum {
		return nil, corrupt(path, "checksum mismatch: expected %s, got %s", env.Metadata.Checksum, checksum)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, corrupt(path, "decode payload: %v", err)
	}
	if len(p.Vectorizer) == 0 || len(p.Classifier) == 0 {
		return nil, corrupt(path, "missing vectorizer or classifier")
	}
	if p.Kind != env.Metadata.Kind {
		return nil, corrupt(path, "metadata kind %q does not match payload kind %q", env.Metadata.Kind, p.Kind)
	}

	vec := vectorize.NewTfidfVectorizer(0)
	if err := vec.UnmarshalBinary(p.Vectorizer); err != nil {
		return nil, corrupt(path, "%v", err)
	}

	clf, err := classify.New(p.Kind, classify.Options{})
	if err != nil {
		return nil, corrupt(path, "%v", err)
	}
	if err := clf.UnmarshalBinary(p.Classifier); err != nil {
		return nil, corrupt(path, "%v", err)
	}

	return &Artifact{
		Kind:       p.Kind,
		Vectorizer: vec,
		Classifier: clf,
		Meta:       env.Metadata,
	}, nil
}

// ReadMetadata returns the envelope metadata without decoding the models
func ReadMetadata(path string) (*Metadata, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	return &env.Metadata, nil
}

func readEnvelope(path string) (*envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, corrupt(path, "decode envelope: %v", err)
	}
	return &env, nil
}

func corrupt(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrCorruptArtifact, path, fmt.Sprintf(format, args...))
}
