// Package corpus reads labeled review corpora from CSV in bounded chunks.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/revsent/internal/model"
)

var (
	// ErrMissingColumn is returned when a header lacks a configured column
	ErrMissingColumn = errors.New("missing column")

	// ErrMalformedRecord is returned for short rows and non-integer ratings
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyCorpus is returned when no rows were read
	ErrEmptyCorpus = errors.New("empty corpus")
)

// DefaultChunkSize is the number of rows read per chunk
const DefaultChunkSize = 100000

// Options controls the CSV layout and the read limits
type Options struct {
	HasHeader    bool
	RatingColumn string
	TitleColumn  string // optional in header mode
	TextColumn   string
	ChunkSize    int
	MaxSamples   int // <= 0 means unlimited
}

// OptionsFromConfig maps the corpus section of the configuration
func OptionsFromConfig(cfg model.CorpusConfig) Options {
	return Options{
		HasHeader:    cfg.HasHeader,
		RatingColumn: cfg.RatingColumn,
		TitleColumn:  "Title",
		TextColumn:   cfg.TextColumn,
		ChunkSize:    cfg.ChunkSize,
		MaxSamples:   cfg.MaxSamples,
	}
}

// LoadStats reports what the last Load did
type LoadStats struct {
	ChunksRead int
	RowsRead   int
	Truncated  bool // MaxSamples stopped the read before EOF
}

// ChunkFunc is invoked after each chunk is appended with the running row count
type ChunkFunc func(chunk, rows int)

// Loader reads RawRecords chunk by chunk
type Loader struct {
	opts    Options
	stats   LoadStats
	onChunk ChunkFunc
}

// NewLoader creates a loader
func NewLoader(opts Options) *Loader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.RatingColumn == "" {
		opts.RatingColumn = "Rating"
	}
	if opts.TextColumn == "" {
		opts.TextColumn = "Text"
	}
	return &Loader{opts: opts}
}

// OnChunk registers a progress callback
func (l *Loader) OnChunk(fn ChunkFunc) {
	l.onChunk = fn
}

// Stats returns the statistics of the last Load
func (l *Loader) Stats() LoadStats {
	return l.stats
}

// LoadFile opens path and loads it
func (l *Loader) LoadFile(ctx context.Context, path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Load(ctx, f)
}

// Load reads chunks until EOF or until MaxSamples rows are held. The chunk
// that crosses the limit is trimmed and no further chunk is read.
func (l *Loader) Load(ctx context.Context, r io.Reader) ([]model.RawRecord, error) {
	l.stats = LoadStats{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	cols := columns{rating: 0, title: 1, text: 2, width: 3}
	if l.opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptyCorpus
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		cols, err = l.resolveColumns(header)
		if err != nil {
			return nil, err
		}
	}

	var records []model.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, eof, err := l.readChunk(reader, cols)
		if err != nil {
			return nil, err
		}
		if len(chunk) > 0 {
			l.stats.ChunksRead++
			records = append(records, chunk...)
		}

		if l.opts.MaxSamples > 0 && len(records) >= l.opts.MaxSamples {
			l.stats.Truncated = !eof || len(records) > l.opts.MaxSamples
			records = records[:l.opts.MaxSamples]
			l.notify(len(records))
			break
		}
		if len(chunk) > 0 {
			l.notify(len(records))
		}
		if eof {
			break
		}
	}

	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	return records, nil
}

func (l *Loader) notify(rows int) {
	if l.onChunk != nil {
		l.onChunk(l.stats.ChunksRead, rows)
	}
}

// readChunk reads up to ChunkSize rows
func (l *Loader) readChunk(reader *csv.Reader, cols columns) ([]model.RawRecord, bool, error) {
	chunk := make([]model.RawRecord, 0, min(l.opts.ChunkSize, 4096))

	for len(chunk) < l.opts.ChunkSize {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return chunk, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := cols.record(row)
		if err != nil {
			return nil, false, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}
		chunk = append(chunk, rec)
		l.stats.RowsRead++
	}
	return chunk, false, nil
}

// columns holds field positions; title < 0 means absent
type columns struct {
	rating int
	title  int
	text   int
	width  int
}

func (l *Loader) resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	cols := columns{title: -1}
	var ok bool
	if cols.rating, ok = index[l.opts.RatingColumn]; !ok {
		return cols, fmt.Errorf("%w: %q", ErrMissingColumn, l.opts.RatingColumn)
	}
	if cols.text, ok = index[l.opts.TextColumn]; !ok {
		return cols, fmt.Errorf("%w: %q", ErrMissingColumn, l.opts.TextColumn)
	}
	if l.opts.TitleColumn != "" {
		if i, ok := index[l.opts.TitleColumn]; ok {
			cols.title = i
		}
	}

	cols.width = max(cols.rating, cols.text, cols.title) + 1
	return cols, nil
}

func (c columns) record(row []string) (model.RawRecord, error) {
	if len(row) < c.width {
		return model.RawRecord{}, fmt.Errorf("expected at least %d fields, got %d", c.width, len(row))
	}

	rating, err := strconv.Atoi(strings.TrimSpace(row[c.rating]))
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("rating %q is not an integer", row[c.rating])
	}

	rec := model.RawRecord{Rating: rating, Text: row[c.text]}
	if c.title >= 0 {
		rec.Title = row[c.title]
	}
	return rec, nil
}
