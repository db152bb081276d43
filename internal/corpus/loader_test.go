package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/revsent/internal/model"
)

func positionalCSV(rows int) string {
	var b strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,title %d,\"review, number %d\"\n", i%5+1, i, i)
	}
	return b.String()
}

func TestLoad_ChunkCutoff(t *testing.T) {
	l := NewLoader(Options{ChunkSize: 100, MaxSamples: 150})

	records, err := l.Load(context.Background(), strings.NewReader(positionalCSV(1000)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 150 {
		t.Errorf("expected 150 records, got %d", len(records))
	}
	stats := l.Stats()
	if stats.ChunksRead != 2 {
		t.Errorf("expected 2 chunks read, got %d", stats.ChunksRead)
	}
	if stats.RowsRead != 200 {
		t.Errorf("expected 200 rows read, got %d", stats.RowsRead)
	}
	if !stats.Truncated {
		t.Error("expected Truncated to be set")
	}
	if records[149].Title != "title 149" {
		t.Errorf("last record = %+v, order not preserved", records[149])
	}
}

func TestLoad_CutoffMonotonic(t *testing.T) {
	data := positionalCSV(500)
	for _, max := range []int{1, 49, 50, 51, 99, 100, 250, 499, 500, 501, 10000} {
		l := NewLoader(Options{ChunkSize: 50, MaxSamples: max})
		records, err := l.Load(context.Background(), strings.NewReader(data))
		if err != nil {
			t.Fatalf("max=%d: Load failed: %v", max, err)
		}
		want := max
		if want > 500 {
			want = 500
		}
		if len(records) != want {
			t.Errorf("max=%d: got %d records, want %d", max, len(records), want)
		}
		if l.Stats().RowsRead-len(records) >= 50 {
			t.Errorf("max=%d: read %d rows for %d records, a whole extra chunk", max, l.Stats().RowsRead, len(records))
		}
	}
}

func TestLoad_Unlimited(t *testing.T) {
	l := NewLoader(Options{ChunkSize: 64})
	records, err := l.Load(context.Background(), strings.NewReader(positionalCSV(200)))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 200 {
		t.Errorf("expected 200 records, got %d", len(records))
	}
	if got := l.Stats().ChunksRead; got != 4 {
		t.Errorf("expected 4 chunks, got %d", got)
	}
	if l.Stats().Truncated {
		t.Error("unlimited load should not be truncated")
	}
}

func TestLoad_PositionalFields(t *testing.T) {
	l := NewLoader(Options{})
	records, err := l.Load(context.Background(), strings.NewReader("4,Nice,\"Works <b>great</b>, really\"\n1,,Broke\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []model.RawRecord{
		{Rating: 4, Title: "Nice", Text: "Works <b>great</b>, really"},
		{Rating: 1, Title: "", Text: "Broke"},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records", len(records))
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestLoad_HeaderColumns(t *testing.T) {
	data := "Id,Score,Summary,Body\n1,5,Great,Love it\n2,2,Meh,Not good\n"

	l := NewLoader(Options{HasHeader: true, RatingColumn: "Score", TextColumn: "Body", TitleColumn: "Summary"})
	records, err := l.Load(context.Background(), strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0] != (model.RawRecord{Rating: 5, Title: "Great", Text: "Love it"}) {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	l = NewLoader(Options{HasHeader: true, RatingColumn: "Score", TextColumn: "Text"})
	if _, err := l.Load(context.Background(), strings.NewReader(data)); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"non-integer rating", "5,a,b\nfive,a,b\n"},
		{"short row", "5,a,b\n4,only\n"},
		{"bad quoting", "5,a,\"unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(Options{}).Load(context.Background(), strings.NewReader(tt.data))
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}

	_, err := NewLoader(Options{}).Load(context.Background(), strings.NewReader("5,a,b\nfive,a,b\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	if _, err := NewLoader(Options{}).Load(context.Background(), strings.NewReader("")); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
	header := NewLoader(Options{HasHeader: true})
	if _, err := header.Load(context.Background(), strings.NewReader("Rating,Text\n")); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus for header-only file, got %v", err)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLoader(Options{}).Load(ctx, strings.NewReader(positionalCSV(3))); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	if err := os.WriteFile(path, []byte(positionalCSV(10)), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls []int
	l := NewLoader(Options{ChunkSize: 4})
	l.OnChunk(func(chunk, rows int) { calls = append(calls, rows) })

	records, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 10 {
		t.Errorf("expected 10 records, got %d", len(records))
	}
	if len(calls) != 3 || calls[2] != 10 {
		t.Errorf("unexpected progress calls: %v", calls)
	}

	if _, err := l.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
