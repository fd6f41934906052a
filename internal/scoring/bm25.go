// Package scoring holds the BM25 relevance formula used by term scorers.
package scoring

import (
	"fmt"
	"math"
)

// Default BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25 computes BM25 relevance scores.
type BM25 struct {
	K1 float32
	B  float32
}

// NewBM25 returns BM25 with the default parameters.
func NewBM25() BM25 {
	return BM25{K1: DefaultK1, B: DefaultB}
}

// CollectionStats are the index-wide statistics of one field.
type CollectionStats struct {
	Field          string
	DocCount       int64
	AvgFieldLength float32
}

// IDF computes the inverse document frequency of a term.
//
//	IDF(qi) = ln(1 + (N - n(qi) + 0.5) / (n(qi) + 0.5))
func (s BM25) IDF(docCount, docFreq int64) float32 {
	n := float64(docFreq)
	N := float64(docCount)
	return float32(math.Log(1 + (N-n+0.5)/(n+0.5)))
}

// Weigh precomputes everything about a query term that does not depend on
// the matching doc.
func (s BM25) Weigh(stats CollectionStats, term string, docFreq int64, boost float32) *TermWeight {
	avgdl := stats.AvgFieldLength
	if avgdl <= 0 {
		avgdl = 1
	}
	return &TermWeight{
		sim:     s,
		field:   stats.Field,
		term:    term,
		docFreq: docFreq,
		N:       stats.DocCount,
		avgdl:   avgdl,
		idf:     s.IDF(stats.DocCount, docFreq),
		boost:   boost,
	}
}

// TermWeight scores docs for a single query term.
type TermWeight struct {
	sim     BM25
	field   string
	term    string
	docFreq int64
	N       int64
	avgdl   float32
	idf     float32
	boost   float32
}

// IDF returns the term's inverse document frequency.
func (w *TermWeight) IDF() float32 { return w.idf }

// Score computes the boosted BM25 score of a doc.
//
//	score = boost × IDF × (tf × (k1 + 1)) / (tf + k1 × (1 - b + b × dl / avgdl))
func (w *TermWeight) Score(termFreq, fieldLength uint32) float32 {
	return w.boost * w.idf * w.tfNorm(termFreq, fieldLength)
}

func (w *TermWeight) tfNorm(termFreq, fieldLength uint32) float32 {
	tf := float32(termFreq)
	dl := float32(fieldLength)
	denominator := tf + w.sim.K1*(1-w.sim.B+w.sim.B*dl/w.avgdl)
	if denominator == 0 {
		return 0
	}
	return tf * (w.sim.K1 + 1) / denominator
}

// Explanation provides a human-readable breakdown of a score.
type Explanation struct {
	Description string        `json:"description"`
	Value       float32       `json:"value"`
	Details     []Explanation `json:"details,omitempty"`
}

// Explain breaks down the score of one doc.
func (w *TermWeight) Explain(termFreq, fieldLength uint32) Explanation {
	tfNorm := w.tfNorm(termFreq, fieldLength)
	return Explanation{
		Description: fmt.Sprintf("weight(%s:%s) [BM25]", w.field, w.term),
		Value:       w.boost * w.idf * tfNorm,
		Details: []Explanation{
			{Description: "boost", Value: w.boost},
			{Description: fmt.Sprintf("idf(docFreq=%d, N=%d)", w.docFreq, w.N), Value: w.idf},
			{Description: fmt.Sprintf("tf(freq=%d, dl=%d, avgdl=%.1f)", termFreq, fieldLength, w.avgdl), Value: tfNorm},
		},
	}
}
