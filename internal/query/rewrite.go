package query

import (
	"GoJoin/internal/engine"
	"GoJoin/internal/index"
)

// Rewrite simplifies a boolean query. Rules: rewrite clauses, flatten nested
// booleans with the same operator, short-circuit MatchNone in AND, remove
// MatchAll from AND when another required clause remains (collapsing repeated
// MatchAll otherwise), unwrap a single remaining clause. The searcher applies
// it until a fixed point is reached.
func (q *BooleanQuery) Rewrite(r *index.Reader) (engine.Query, error) {
	// Recursively rewrite children first.
	clauses := make([]BooleanClause, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		rewritten, err := c.Query.Rewrite(r)
		if err != nil {
			return nil, err
		}

		// Flatten nested booleans with same operator.
		if inner, ok := rewritten.(*BooleanQuery); ok && canFlatten(c.Occur, inner) {
			for _, ic := range inner.Clauses {
				clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: ic.Query})
			}
			continue
		}
		clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: rewritten})
	}

	// Short-circuit: MatchNone in AND → MatchNone.
	for _, c := range clauses {
		if _, ok := c.Query.(*MatchNoneQuery); ok && c.Occur == BooleanMust {
			return &MatchNoneQuery{}, nil
		}
	}

	// Remove MatchAll from AND (must) clauses while another must clause
	// carries the match.
	must := 0
	for _, c := range clauses {
		if c.Occur == BooleanMust {
			if _, ok := c.Query.(*MatchAllQuery); !ok {
				must++
			}
		}
	}
	// Without one, repeated MatchAll clauses collapse into the first.
	filtered := make([]BooleanClause, 0, len(clauses))
	keptMatchAll := false
	for _, c := range clauses {
		if _, ok := c.Query.(*MatchAllQuery); ok && c.Occur == BooleanMust {
			if must > 0 || keptMatchAll {
				continue
			}
			keptMatchAll = true
		}
		filtered = append(filtered, c)
	}

	// Single clause remaining: unwrap.
	if len(filtered) == 1 && effectiveBoost(q.Boost) == 1 {
		only := filtered[0]
		if only.Occur == BooleanMust || (only.Occur == BooleanShould && q.MinimumShouldMatch <= 1) {
			return only.Query, nil
		}
	}

	result := &BooleanQuery{
		Clauses:            filtered,
		MinimumShouldMatch: q.MinimumShouldMatch,
		Boost:              q.Boost,
	}
	if sameClauses(result.Clauses, q.Clauses) {
		return q, nil
	}
	return result, nil
}

// canFlatten returns true if an inner boolean can be flattened into the outer clause.
// AND(AND(a,b)) → AND(a,b) and OR(OR(a,b)) → OR(a,b).
func canFlatten(outerOccur BooleanOp, inner *BooleanQuery) bool {
	if outerOccur == BooleanMustNot || inner.MinimumShouldMatch > 0 || effectiveBoost(inner.Boost) != 1 {
		return false
	}
	for _, c := range inner.Clauses {
		if c.Occur != outerOccur {
			return false
		}
	}
	return true
}

// sameClauses reports whether rewriting left the clauses untouched. Clause
// queries are compared by identity: a rewrite that changes nothing returns
// its receiver.
func sameClauses(a, b []BooleanClause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Occur != b[i].Occur || a[i].Query != b[i].Query {
			return false
		}
	}
	return true
}
