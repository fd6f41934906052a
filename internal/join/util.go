package join

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/engine"
)

// CreateJoinQuery runs fromQuery on fromSearcher, collects the values of
// fromField of every match and returns a query matching the docs whose
// toField holds any of them. With ScoreModeNone every match scores 1;
// otherwise a match scores with the combined score of the from docs that
// hold its value.
//
// The from side is searched before CreateJoinQuery returns. The returned
// query is immutable and may be shared by concurrent searches.
func CreateJoinQuery(fromField string, multipleValuesPerDocument bool, toField string, fromQuery engine.Query, fromSearcher *engine.Searcher, scoreMode ScoreMode, opts ...Option) (engine.Query, error) {
	o := buildOptions(opts)

	var (
		q    engine.Query
		keys *JoinKeyTable
		kind string
	)
	switch scoreMode {
	case ScoreModeNone:
		c := NewTermsCollector(fromField, multipleValuesPerDocument)
		if err := fromSearcher.Search(fromQuery, c); err != nil {
			return nil, errors.Wrapf(err, "collect join keys of %q", fromField)
		}
		keys = c.KeyTable()
		q = NewTermsQuery(toField, fromQuery, keys)
		kind = "terms"

	case ScoreModeAvg, ScoreModeMax, ScoreModeTotal:
		c, err := NewTermsWithScoreCollector(fromField, multipleValuesPerDocument, scoreMode)
		if err != nil {
			return nil, err
		}
		if err := fromSearcher.Search(fromQuery, c); err != nil {
			return nil, errors.Wrapf(err, "collect join keys of %q", fromField)
		}
		keys = c.KeyTable()
		tq := NewTermsIncludingScoreQuery(toField, multipleValuesPerDocument, keys, c.Scores(), fromQuery)
		tq.metrics = o.metrics
		q = tq
		kind = "terms_including_score"

	default:
		return nil, errors.Wrapf(ErrUnsupportedScoreMode, "score mode %d", int(scoreMode))
	}

	o.metrics.JoinBuilt(kind, scoreMode.String())
	o.metrics.KeysCollected(keys.Len())
	o.logger.Debug("join query built",
		"from_field", fromField,
		"to_field", toField,
		"keys", keys.Len(),
		"strategy", kind,
		"score_mode", scoreMode.String(),
	)
	return q, nil
}
