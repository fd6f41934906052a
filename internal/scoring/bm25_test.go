package scoring

import (
	"math"
	"testing"
)

func TestBM25_IDF(t *testing.T) {
	s := NewBM25()

	tests := []struct {
		name    string
		docFreq int64
	}{
		{"rare term", 10},
		{"common term", 5000},
		{"very common", 9999},
		{"single doc", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if idf := s.IDF(10000, tt.docFreq); idf <= 0 {
				t.Errorf("IDF(%d) = %f, want > 0", tt.docFreq, idf)
			}
		})
	}

	if rare, common := s.IDF(10000, 10), s.IDF(10000, 5000); rare <= common {
		t.Errorf("rare IDF (%f) should be > common IDF (%f)", rare, common)
	}
}

func TestTermWeight_Score(t *testing.T) {
	stats := CollectionStats{Field: "body", DocCount: 10000, AvgFieldLength: 25}
	w := NewBM25().Weigh(stats, "go", 100, 1)

	if score := w.Score(3, 25); score <= 0 {
		t.Errorf("Score = %f, want > 0", score)
	}
	if low, high := w.Score(1, 25), w.Score(10, 25); high <= low {
		t.Errorf("higher tf should score higher: tf=1 → %f, tf=10 → %f", low, high)
	}
	if short, long := w.Score(3, 10), w.Score(3, 100); short <= long {
		t.Errorf("shorter doc should score higher: dl=10 → %f, dl=100 → %f", short, long)
	}
}

func TestTermWeight_Boost(t *testing.T) {
	stats := CollectionStats{Field: "body", DocCount: 100, AvgFieldLength: 10}
	plain := NewBM25().Weigh(stats, "go", 5, 1)
	boosted := NewBM25().Weigh(stats, "go", 5, 2.5)

	want := plain.Score(2, 10) * 2.5
	if got := boosted.Score(2, 10); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("boosted score = %f, want %f", got, want)
	}
}

func TestTermWeight_Explain(t *testing.T) {
	stats := CollectionStats{Field: "title", DocCount: 50, AvgFieldLength: 4}
	w := NewBM25().Weigh(stats, "engineer", 3, 1)

	exp := w.Explain(1, 2)
	if math.Abs(float64(exp.Value-w.Score(1, 2))) > 1e-6 {
		t.Errorf("Explain value %f != Score %f", exp.Value, w.Score(1, 2))
	}
	if len(exp.Details) != 3 {
		t.Errorf("expected 3 details, got %d", len(exp.Details))
	}
	if exp.Description != "weight(title:engineer) [BM25]" {
		t.Errorf("unexpected description %q", exp.Description)
	}
}
