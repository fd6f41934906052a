package query

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/bitset"
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// BooleanOp defines the boolean operator.
type BooleanOp int

const (
	BooleanMust    BooleanOp = iota // AND
	BooleanShould                   // OR
	BooleanMustNot                  // NOT
)

func (op BooleanOp) prefix() string {
	switch op {
	case BooleanMust:
		return "+"
	case BooleanMustNot:
		return "-"
	default:
		return ""
	}
}

// BooleanClause is a single clause within a BooleanQuery.
type BooleanClause struct {
	Occur BooleanOp
	Query engine.Query
}

// BooleanQuery combines sub-queries with boolean logic. A doc matches when it
// matches every must clause, none of the must-not clauses and at least
// MinimumShouldMatch should clauses; with no must clause, at least one
// should clause. The score sums the scores of matching must and should
// clauses.
type BooleanQuery struct {
	Clauses            []BooleanClause
	MinimumShouldMatch int
	Boost              float32
}

func (q *BooleanQuery) CreateWeight(s *engine.Searcher) (engine.Weight, error) {
	if len(q.Clauses) > MaxBooleanClauses {
		return nil, errors.Wrapf(ErrTooManyClauses, "%d clauses (max %d)", len(q.Clauses), MaxBooleanClauses)
	}
	w := &booleanWeight{query: q, weights: make([]engine.Weight, len(q.Clauses))}
	for i, c := range q.Clauses {
		sub, err := c.Query.CreateWeight(s)
		if err != nil {
			return nil, err
		}
		w.weights[i] = sub
	}
	return w, nil
}

func (q *BooleanQuery) ExtractTerms(terms map[engine.Term]struct{}) {
	for _, c := range q.Clauses {
		if c.Occur != BooleanMustNot {
			c.Query.ExtractTerms(terms)
		}
	}
}

func (q *BooleanQuery) Equal(other engine.Query) bool {
	o, ok := other.(*BooleanQuery)
	if !ok || len(o.Clauses) != len(q.Clauses) || o.MinimumShouldMatch != q.MinimumShouldMatch {
		return false
	}
	if effectiveBoost(o.Boost) != effectiveBoost(q.Boost) {
		return false
	}
	for i := range q.Clauses {
		if q.Clauses[i].Occur != o.Clauses[i].Occur || !q.Clauses[i].Query.Equal(o.Clauses[i].Query) {
			return false
		}
	}
	return true
}

func (q *BooleanQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		sub := c.Query.String()
		if _, nested := c.Query.(*BooleanQuery); nested {
			sub = "(" + sub + ")"
		}
		parts[i] = c.Occur.prefix() + sub
	}
	s := strings.Join(parts, " ")
	if q.MinimumShouldMatch > 0 {
		s += "~" + strconv.Itoa(q.MinimumShouldMatch)
	}
	return s + engine.BoostString(q.Boost)
}

type booleanWeight struct {
	query   *BooleanQuery
	weights []engine.Weight
}

func (w *booleanWeight) Query() engine.Query        { return w.query }
func (w *booleanWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *booleanWeight) Scorer(leaf *index.LeafReader, acceptDocs bitset.Bits) (engine.Scorer, error) {
	var required, optional, prohibited []engine.Scorer
	for i, c := range w.query.Clauses {
		sub, err := w.weights[i].Scorer(leaf, acceptDocs)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case BooleanMust:
			if sub == nil {
				return nil, nil
			}
			required = append(required, sub)
		case BooleanShould:
			if sub != nil {
				optional = append(optional, sub)
			}
		case BooleanMustNot:
			if sub != nil {
				prohibited = append(prohibited, sub)
			}
		}
	}

	minShould := w.query.MinimumShouldMatch
	if len(optional) < minShould {
		return nil, nil
	}

	var main engine.Scorer
	switch {
	case len(required) == 0 && len(optional) == 0:
		return nil, nil
	case len(required) == 0:
		main = disjunction(optional, minShould)
	case minShould > 0:
		main = engine.NewConjunctionScorer(append(required, disjunction(optional, minShould)))
	default:
		main = conjunction(required)
		if len(optional) > 0 {
			main = engine.NewReqOptScorer(main, disjunction(optional, 1))
		}
	}

	if len(prohibited) > 0 {
		main = engine.NewReqExclScorer(main, disjunction(prohibited, 1))
	}
	return boostScorer(main, effectiveBoost(w.query.Boost)), nil
}

func conjunction(subs []engine.Scorer) engine.Scorer {
	if len(subs) == 1 {
		return subs[0]
	}
	return engine.NewConjunctionScorer(subs)
}

func disjunction(subs []engine.Scorer, minMatch int) engine.Scorer {
	if len(subs) == 1 && minMatch <= 1 {
		return subs[0]
	}
	return engine.NewDisjunctionScorer(subs, minMatch)
}
