package engine

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/index"
	"GoJoin/internal/scoring"
)

// Searcher runs queries against a point-in-time Reader. It is safe for
// concurrent use as long as each search uses its own collector.
type Searcher struct {
	reader *index.Reader
	sim    scoring.BM25
	logger *slog.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithLogger sets the logger used for search diagnostics.
func WithLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSimilarity overrides the BM25 parameters used by term scorers.
func WithSimilarity(sim scoring.BM25) SearcherOption {
	return func(s *Searcher) { s.sim = sim }
}

// NewSearcher creates a Searcher over r.
func NewSearcher(r *index.Reader, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		reader: r,
		sim:    scoring.NewBM25(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "searcher")
	return s
}

// Reader returns the reader the searcher runs against.
func (s *Searcher) Reader() *index.Reader { return s.reader }

// Similarity returns the BM25 parameters used by term scorers.
func (s *Searcher) Similarity() scoring.BM25 { return s.sim }

// Logger returns the searcher's logger.
func (s *Searcher) Logger() *slog.Logger { return s.logger }

// Rewrite rewrites q until it no longer changes.
func (s *Searcher) Rewrite(q Query) (Query, error) {
	if q == nil {
		return nil, ErrNilQuery
	}
	for {
		rewritten, err := q.Rewrite(s.reader)
		if err != nil {
			return nil, errors.Wrapf(err, "rewrite %s", q)
		}
		if rewritten == q {
			return q, nil
		}
		q = rewritten
	}
}

// CreateWeight rewrites q and binds it to the searcher.
func (s *Searcher) CreateWeight(q Query) (Weight, error) {
	rewritten, err := s.Rewrite(q)
	if err != nil {
		return nil, err
	}
	return rewritten.CreateWeight(s)
}

// Search collects every match of q into c.
func (s *Searcher) Search(q Query, c Collector) error {
	return s.SearchFiltered(q, nil, c)
}

// SearchFiltered collects every match of q accepted by filter into c. A nil
// filter accepts every doc.
//
// Iterators panic when they find the index does not have the block
// structure a query relies on; such panics, and aborts raised by
// collectors, are returned as errors.
func (s *Searcher) SearchFiltered(q Query, filter Filter, c Collector) error {
	w, err := s.CreateWeight(q)
	if err != nil {
		return err
	}
	return s.searchWeight(w, filter, c)
}

func (s *Searcher) searchWeight(w Weight, filter Filter, c Collector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverSearchPanic(r)
		}
	}()

	for _, leaf := range s.reader.Leaves() {
		acceptDocs := leaf.LiveDocs()
		if filter != nil {
			set, err := filter.DocIDSet(leaf, acceptDocs)
			if err != nil {
				return errors.Wrapf(err, "filter %s on segment %s", filter, leaf.Name())
			}
			if set == nil {
				continue
			}
			acceptDocs = intersectBits(acceptDocs, ToFixedBitSet(set, leaf.MaxDoc()))
		}

		c.SetNextReader(leaf)
		if err := s.scoreLeaf(w, leaf, acceptDocs, c); err != nil {
			return errors.Wrapf(err, "segment %s", leaf.Name())
		}
	}
	s.logger.Debug("search complete",
		"query", w.Query().String(),
		"segments", len(s.reader.Leaves()),
	)
	return nil
}

func (s *Searcher) scoreLeaf(w Weight, leaf *index.LeafReader, acceptDocs bitset.Bits, c Collector) error {
	if bw, ok := w.(BulkScorerWeight); ok {
		inOrder := !(c.AcceptsDocsOutOfOrder() && w.ScoresDocsOutOfOrder())
		bulk, err := bw.BulkScorer(leaf, inOrder, acceptDocs)
		if err != nil || bulk == nil {
			return err
		}
		return bulk.Score(c)
	}
	scorer, err := w.Scorer(leaf, acceptDocs)
	if err != nil || scorer == nil {
		return err
	}
	return NewScorerBulkScorer(scorer).Score(c)
}

// TopDocs returns the n best scoring matches of q.
func (s *Searcher) TopDocs(q Query, n int) (*TopDocs, error) {
	c := NewTopScoreDocCollector(n)
	if err := s.Search(q, c); err != nil {
		return nil, err
	}
	return c.TopDocs(), nil
}

// TopFieldDocs returns the n first matches of q in sort order, with their
// sort values and scores filled in.
func (s *Searcher) TopFieldDocs(q Query, n int, sort Sort) (*TopDocs, error) {
	c, err := NewTopFieldCollector(sort, n, true, true, true)
	if err != nil {
		return nil, err
	}
	if err := s.Search(q, c); err != nil {
		return nil, err
	}
	return c.TopDocs(), nil
}

// Document returns the stored fields of a top-level doc.
func (s *Searcher) Document(doc uint32) map[string]any {
	return s.reader.Document(doc)
}
