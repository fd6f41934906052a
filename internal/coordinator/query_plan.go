package coordinator

import (
	"strings"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/engine"
	"GoJoin/internal/join"
	"GoJoin/internal/query"
)

// Plan kinds.
const (
	KindSearch   = "search"
	KindToParent = "to_parent"
	KindToChild  = "to_child"
	KindJoin     = "join"
)

// Clause types.
const (
	ClauseTerm       = "term"
	ClauseMatchAll   = "match_all"
	ClauseFieldScore = "field_score"
	ClauseBool       = "bool"
)

// Sort types.
const (
	SortScore  = "score"
	SortDoc    = "doc"
	SortString = "string"
	SortInt64  = "int64"
)

var (
	ErrInvalidClause = errors.New("invalid query clause")
	ErrInvalidPlan   = errors.New("invalid query plan")
)

// QueryClause is the declarative form of a query.
type QueryClause struct {
	Type    string        `json:"type" yaml:"type"`
	Field   string        `json:"field,omitempty" yaml:"field,omitempty"`
	Term    string        `json:"term,omitempty" yaml:"term,omitempty"`
	Boost   float32       `json:"boost,omitempty" yaml:"boost,omitempty"`
	Must    []QueryClause `json:"must,omitempty" yaml:"must,omitempty"`
	Should  []QueryClause `json:"should,omitempty" yaml:"should,omitempty"`
	MustNot []QueryClause `json:"must_not,omitempty" yaml:"mustNot,omitempty"`
}

// Build returns the executable query of c.
func (c QueryClause) Build() (engine.Query, error) {
	switch c.Type {
	case ClauseTerm:
		if c.Field == "" || c.Term == "" {
			return nil, errors.Wrap(ErrInvalidClause, "term clause needs a field and a term")
		}
		return &query.TermQuery{Field: c.Field, Term: c.Term, Boost: c.Boost}, nil

	case ClauseMatchAll:
		return &query.MatchAllQuery{Boost: c.Boost}, nil

	case ClauseFieldScore:
		if c.Field == "" {
			return nil, errors.Wrap(ErrInvalidClause, "field_score clause needs a field")
		}
		return &query.FieldScoreQuery{Field: c.Field, Boost: c.Boost}, nil

	case ClauseBool:
		bq := &query.BooleanQuery{Boost: c.Boost}
		for _, group := range []struct {
			occur   query.BooleanOp
			clauses []QueryClause
		}{
			{query.BooleanMust, c.Must},
			{query.BooleanShould, c.Should},
			{query.BooleanMustNot, c.MustNot},
		} {
			for i, sub := range group.clauses {
				q, err := sub.Build()
				if err != nil {
					return nil, errors.Wrapf(err, "clause %d", i)
				}
				bq.Clauses = append(bq.Clauses, query.BooleanClause{Occur: group.occur, Query: q})
			}
		}
		if len(c.Must)+len(c.Should) == 0 {
			return nil, errors.Wrap(ErrInvalidClause, "bool clause needs a must or should clause")
		}
		return bq, nil

	default:
		return nil, errors.Wrapf(ErrInvalidClause, "unknown clause type %q", c.Type)
	}
}

// SortSpec is one sort criterion of a plan. Children, set to "lowest" or
// "highest", sorts parents by the values of their children instead of their
// own, picking children with ChildFilter when it is set.
type SortSpec struct {
	Field       string       `json:"field,omitempty" yaml:"field,omitempty"`
	Type        string       `json:"type" yaml:"type"`
	Reverse     bool         `json:"reverse,omitempty" yaml:"reverse,omitempty"`
	Children    string       `json:"children,omitempty" yaml:"children,omitempty"`
	ChildFilter *QueryClause `json:"child_filter,omitempty" yaml:"childFilter,omitempty"`
}

func (s SortSpec) sortField(parents engine.Filter) (engine.SortField, error) {
	var typ engine.SortFieldType
	switch strings.ToLower(s.Type) {
	case SortScore:
		typ = engine.SortScore
	case SortDoc:
		typ = engine.SortDoc
	case SortString:
		typ = engine.SortString
	case SortInt64:
		typ = engine.SortInt64
	default:
		return engine.SortField{}, errors.Wrapf(ErrInvalidPlan, "unknown sort type %q", s.Type)
	}
	if (typ == engine.SortString || typ == engine.SortInt64) && s.Field == "" {
		return engine.SortField{}, errors.Wrapf(ErrInvalidPlan, "%s sort needs a field", s.Type)
	}
	if s.Children == "" {
		return engine.SortField{Field: s.Field, Type: typ, Reverse: s.Reverse}, nil
	}

	var order join.BlockOrder
	switch strings.ToLower(s.Children) {
	case join.BlockOrderLowest.String():
		order = join.BlockOrderLowest
	case join.BlockOrderHighest.String():
		order = join.BlockOrderHighest
	default:
		return engine.SortField{}, errors.Wrapf(ErrInvalidPlan, "unknown child sort order %q", s.Children)
	}
	if parents == nil {
		return engine.SortField{}, errors.Wrap(ErrInvalidPlan, "child sort needs parents")
	}
	children := QueryClause{Type: ClauseMatchAll}
	if s.ChildFilter != nil {
		children = *s.ChildFilter
	}
	childQuery, err := children.Build()
	if err != nil {
		return engine.SortField{}, errors.Wrap(err, "child filter")
	}
	return join.NewToParentBlockJoinSortField(s.Field, typ, s.Reverse, order, parents, engine.NewQueryWrapperFilter(childQuery)), nil
}

// QueryPlan is a named query run by the Coordinator.
//
// Query is the query of a search, the child query of a to_parent plan, the
// parent query of a to_child plan and the from query of a join.
type QueryPlan struct {
	Name      string      `json:"name" yaml:"name"`
	Kind      string      `json:"kind" yaml:"kind"`
	Query     QueryClause `json:"query" yaml:"query"`
	ScoreMode string      `json:"score_mode,omitempty" yaml:"scoreMode,omitempty"`

	// Parents selects the parent docs of a block join.
	Parents *QueryClause `json:"parents,omitempty" yaml:"parents,omitempty"`

	FromField   string `json:"from_field,omitempty" yaml:"fromField,omitempty"`
	ToField     string `json:"to_field,omitempty" yaml:"toField,omitempty"`
	MultiValued bool   `json:"multi_valued,omitempty" yaml:"multiValued,omitempty"`

	// Filter restricts the hits of search and join plans without scoring.
	Filter *QueryClause `json:"filter,omitempty" yaml:"filter,omitempty"`

	Sort            []SortSpec `json:"sort,omitempty" yaml:"sort,omitempty"`
	TopN            int        `json:"top_n,omitempty" yaml:"topN,omitempty"`
	MaxDocsPerGroup int        `json:"max_docs_per_group,omitempty" yaml:"maxDocsPerGroup,omitempty"`

	// Fields lists the stored fields returned per hit; empty returns all.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Validate checks that p can be executed.
func (p QueryPlan) Validate() error {
	if p.Name == "" {
		return errors.Wrap(ErrInvalidPlan, "plan has no name")
	}
	if p.TopN < 0 || p.MaxDocsPerGroup < 0 {
		return errors.Wrapf(ErrInvalidPlan, "plan %q: negative limit", p.Name)
	}
	if _, err := p.scoreMode(); err != nil {
		return errors.Wrapf(err, "plan %q", p.Name)
	}
	if _, err := p.Query.Build(); err != nil {
		return errors.Wrapf(err, "plan %q query", p.Name)
	}

	switch p.Kind {
	case KindSearch:
	case KindToParent, KindToChild:
		if p.Parents == nil {
			return errors.Wrapf(ErrInvalidPlan, "plan %q: %s needs parents", p.Name, p.Kind)
		}
		if _, err := p.Parents.Build(); err != nil {
			return errors.Wrapf(err, "plan %q parents", p.Name)
		}
		if p.Filter != nil {
			return errors.Wrapf(ErrInvalidPlan, "plan %q: %s does not take a filter", p.Name, p.Kind)
		}
	case KindJoin:
		if p.FromField == "" || p.ToField == "" {
			return errors.Wrapf(ErrInvalidPlan, "plan %q: join needs fromField and toField", p.Name)
		}
	default:
		return errors.Wrapf(ErrInvalidPlan, "plan %q: unknown kind %q", p.Name, p.Kind)
	}

	if p.Filter != nil {
		if _, err := p.Filter.Build(); err != nil {
			return errors.Wrapf(err, "plan %q filter", p.Name)
		}
	}
	parents, err := p.parentsFilter()
	if err != nil {
		return errors.Wrapf(err, "plan %q parents", p.Name)
	}
	if _, err := p.sort(parents); err != nil {
		return errors.Wrapf(err, "plan %q", p.Name)
	}
	return nil
}

func (p QueryPlan) scoreMode() (join.ScoreMode, error) {
	if p.ScoreMode == "" {
		return join.ScoreModeNone, nil
	}
	return join.ParseScoreMode(p.ScoreMode)
}

// parentsFilter returns the cached parent filter of a block join plan.
func (p QueryPlan) parentsFilter() (engine.Filter, error) {
	if p.Parents == nil {
		return nil, nil
	}
	q, err := p.Parents.Build()
	if err != nil {
		return nil, err
	}
	return engine.NewCachingBitSetFilter(engine.NewQueryWrapperFilter(q)), nil
}

// sort returns the sort of p, or nil for relevance order. Child sorts use
// parents as their parent filter.
func (p QueryPlan) sort(parents engine.Filter) (*engine.Sort, error) {
	if len(p.Sort) == 0 {
		return nil, nil
	}
	fields := make([]engine.SortField, 0, len(p.Sort))
	for i, spec := range p.Sort {
		f, err := spec.sortField(parents)
		if err != nil {
			return nil, errors.Wrapf(err, "sort %d", i)
		}
		fields = append(fields, f)
	}
	s := engine.NewSort(fields...)
	return &s, nil
}
