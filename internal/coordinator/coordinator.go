package coordinator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"GoJoin/internal/engine"
	"GoJoin/internal/join"
	"GoJoin/internal/metrics"
)

var (
	ErrNoPlans        = errors.New("coordinator: no query plans")
	ErrAllPlansFailed = errors.New("coordinator: all query plans failed")
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Coordinator executes query plans against one read-only searcher. Plans
// share the searcher, so Run executes them concurrently.
type Coordinator struct {
	config   Config
	searcher *engine.Searcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Coordinator. m may be nil.
func New(config Config, searcher *engine.Searcher, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.DefaultTopN <= 0 {
		config.DefaultTopN = DefaultConfig().DefaultTopN
	}
	if config.DefaultMaxDocsPerGroup <= 0 {
		config.DefaultMaxDocsPerGroup = DefaultConfig().DefaultMaxDocsPerGroup
	}
	return &Coordinator{
		config:   config,
		searcher: searcher,
		metrics:  m,
		logger:   logger.With("component", "coordinator"),
	}
}

// Hit is a single result doc.
type Hit struct {
	Doc    uint32         `json:"doc"`
	Score  *float32       `json:"score,omitempty"`
	Sort   []any          `json:"sort,omitempty"`
	Stored map[string]any `json:"stored,omitempty"`

	// ChildHits counts the matching children of a to_parent hit; Children
	// holds the top ones.
	ChildHits int   `json:"child_hits,omitempty"`
	Children  []Hit `json:"children,omitempty"`
}

// PlanResult is the result of one plan.
type PlanResult struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Query     string   `json:"query,omitempty"`
	TotalHits int      `json:"total_hits"`
	MaxScore  *float32 `json:"max_score,omitempty"`
	Hits      []Hit    `json:"hits"`
	TookMs    int64    `json:"took_ms"`
	Error     string   `json:"error,omitempty"`
}

// RunResult is the merged result of Run. Results follow the plan order.
type RunResult struct {
	Status  string       `json:"status"`
	Results []PlanResult `json:"results"`
	TookMs  int64        `json:"took_ms"`
}

// IndexStats describes the searched index.
type IndexStats struct {
	Segments int    `json:"segments"`
	MaxDoc   uint32 `json:"max_doc"`
	NumDocs  uint32 `json:"num_docs"`
}

// Stats returns the shape of the searched index.
func (c *Coordinator) Stats() IndexStats {
	r := c.searcher.Reader()
	return IndexStats{
		Segments: len(r.Leaves()),
		MaxDoc:   r.MaxDoc(),
		NumDocs:  r.NumDocs(),
	}
}

// Run executes plans concurrently, at most MaxConcurrentQueries at a time.
// A failing plan yields an error result without stopping the others; the
// status is "partial" when some failed and ErrAllPlansFailed is returned
// when all did.
func (c *Coordinator) Run(ctx context.Context, plans []QueryPlan) (*RunResult, error) {
	start := time.Now()
	if len(plans) == 0 {
		return nil, ErrNoPlans
	}

	results := make([]PlanResult, len(plans))
	var g errgroup.Group
	g.SetLimit(max(1, c.config.MaxConcurrentQueries))
	for i, plan := range plans {
		g.Go(func() error {
			res, err := c.Execute(ctx, plan)
			if err != nil {
				c.logger.Warn("query plan failed", "plan", plan.Name, "error", err)
				results[i] = PlanResult{
					Name:   plan.Name,
					Kind:   plan.Kind,
					Status: StatusError,
					Hits:   []Hit{},
					Error:  err.Error(),
				}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Status == StatusError {
			failed++
		}
	}
	run := &RunResult{
		Status:  StatusSuccess,
		Results: results,
		TookMs:  time.Since(start).Milliseconds(),
	}
	switch {
	case failed == len(plans):
		run.Status = StatusError
		return run, ErrAllPlansFailed
	case failed > 0:
		run.Status = StatusPartial
	}
	return run, nil
}

// Execute runs a single plan.
func (c *Coordinator) Execute(ctx context.Context, plan QueryPlan) (*PlanResult, error) {
	start := time.Now()
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := c.timeout(ctx)

	var (
		res *PlanResult
		err error
	)
	if plan.Kind == KindToParent {
		res, err = c.executeGrouped(plan, timeout)
	} else {
		res, err = c.executeFlat(plan, timeout)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "plan %q", plan.Name)
	}

	took := time.Since(start)
	res.Name = plan.Name
	res.Kind = plan.Kind
	res.Status = StatusSuccess
	res.TookMs = took.Milliseconds()
	c.metrics.ObserveSearch(plan.Name, took.Seconds())
	c.logger.Debug("plan executed",
		"plan", plan.Name,
		"kind", plan.Kind,
		"total_hits", res.TotalHits,
		"took_ms", res.TookMs,
	)
	return res, nil
}

// timeout is the collection budget of a plan: the configured timeout,
// shortened to the context deadline.
func (c *Coordinator) timeout(ctx context.Context) time.Duration {
	timeout := c.config.QueryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := max(time.Until(deadline), time.Nanosecond)
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (c *Coordinator) topN(plan QueryPlan) int {
	if plan.TopN > 0 {
		return plan.TopN
	}
	return c.config.DefaultTopN
}

// flatQuery builds the query of a plan whose hits are not grouped, along
// with its parent filter when it is a block join.
func (c *Coordinator) flatQuery(plan QueryPlan) (engine.Query, engine.Filter, error) {
	q, err := plan.Query.Build()
	if err != nil {
		return nil, nil, err
	}
	mode, err := plan.scoreMode()
	if err != nil {
		return nil, nil, err
	}

	switch plan.Kind {
	case KindToChild:
		parents, err := plan.parentsFilter()
		if err != nil {
			return nil, nil, err
		}
		c.metrics.JoinBuilt(KindToChild, mode.String())
		return join.NewToChildBlockJoinQuery(q, parents, mode != join.ScoreModeNone), parents, nil

	case KindJoin:
		jq, err := join.CreateJoinQuery(plan.FromField, plan.MultiValued, plan.ToField, q, c.searcher, mode,
			join.WithLogger(c.logger), join.WithMetrics(c.metrics))
		if err != nil {
			return nil, nil, err
		}
		return jq, nil, nil

	default:
		return q, nil, nil
	}
}

type topDocsCollector interface {
	engine.Collector
	TopDocs() *engine.TopDocs
}

func (c *Coordinator) executeFlat(plan QueryPlan, timeout time.Duration) (*PlanResult, error) {
	q, parents, err := c.flatQuery(plan)
	if err != nil {
		return nil, err
	}
	sort, err := plan.sort(parents)
	if err != nil {
		return nil, err
	}

	var top topDocsCollector
	if sort != nil {
		tf, err := engine.NewTopFieldCollector(*sort, c.topN(plan), true, true, true)
		if err != nil {
			return nil, err
		}
		top = tf
	} else {
		top = engine.NewTopScoreDocCollector(c.topN(plan))
	}

	var filter engine.Filter
	if plan.Filter != nil {
		fq, err := plan.Filter.Build()
		if err != nil {
			return nil, err
		}
		filter = engine.NewQueryWrapperFilter(fq)
	}

	if err := c.searcher.SearchFiltered(q, filter, engine.NewLimitingCollector(top, timeout, 0)); err != nil {
		return nil, err
	}

	td := top.TopDocs()
	res := &PlanResult{
		Query:     q.String(),
		TotalHits: td.TotalHits,
		MaxScore:  scoreOf(td.MaxScore),
		Hits:      make([]Hit, 0, len(td.ScoreDocs)),
	}
	for _, sd := range td.ScoreDocs {
		res.Hits = append(res.Hits, c.hit(sd, plan.Fields))
	}
	return res, nil
}

// executeGrouped runs a to_parent plan and returns each parent with its
// top matching children. Without scores, children come in doc order.
func (c *Coordinator) executeGrouped(plan QueryPlan, timeout time.Duration) (*PlanResult, error) {
	childQuery, err := plan.Query.Build()
	if err != nil {
		return nil, err
	}
	parents, err := plan.parentsFilter()
	if err != nil {
		return nil, err
	}
	mode, err := plan.scoreMode()
	if err != nil {
		return nil, err
	}
	q := join.NewToParentBlockJoinQuery(childQuery, parents, mode)
	c.metrics.JoinBuilt(KindToParent, mode.String())

	groupSort := engine.SortByRelevance()
	sort, err := plan.sort(parents)
	if err != nil {
		return nil, err
	}
	if sort != nil {
		groupSort = *sort
	}

	trackScores := mode != join.ScoreModeNone
	collector, err := join.NewBlockJoinCollector(groupSort, c.topN(plan), trackScores, trackScores,
		join.WithLogger(c.logger), join.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}
	if err := c.searcher.Search(q, engine.NewLimitingCollector(collector, timeout, 0)); err != nil {
		return nil, err
	}

	var withinGroupSort *engine.Sort
	if !trackScores {
		byDoc := engine.NewSort(engine.SortField{Type: engine.SortDoc})
		withinGroupSort = &byDoc
	}
	maxDocsPerGroup := plan.MaxDocsPerGroup
	if maxDocsPerGroup <= 0 {
		maxDocsPerGroup = c.config.DefaultMaxDocsPerGroup
	}
	groups, err := collector.GetTopGroups(q, withinGroupSort, 0, maxDocsPerGroup, 0, true)
	if err != nil {
		return nil, err
	}

	res := &PlanResult{
		Query:     q.String(),
		TotalHits: collector.TotalHitCount(),
		MaxScore:  scoreOf(collector.MaxScore()),
		Hits:      []Hit{},
	}
	if groups == nil {
		return res, nil
	}
	for _, g := range groups.Groups {
		h := c.hit(engine.ScoreDoc{Doc: g.GroupValue, Score: g.Score, Fields: g.GroupSortValues}, plan.Fields)
		h.ChildHits = g.TotalHits
		for _, sd := range g.ScoreDocs {
			h.Children = append(h.Children, c.hit(sd, plan.Fields))
		}
		res.Hits = append(res.Hits, h)
	}
	return res, nil
}

func (c *Coordinator) hit(sd engine.ScoreDoc, fields []string) Hit {
	h := Hit{Doc: sd.Doc, Score: scoreOf(sd.Score), Sort: sd.Fields}
	stored := c.searcher.Document(sd.Doc)
	if len(fields) == 0 {
		h.Stored = stored
	} else {
		h.Stored = make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := stored[f]; ok {
				h.Stored[f] = v
			}
		}
	}
	if len(h.Stored) == 0 {
		h.Stored = nil
	}
	return h
}

// scoreOf drops scores JSON cannot encode, which untracked scores are.
func scoreOf(score float32) *float32 {
	f := float64(score)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &score
}
