package engine

import (
	"time"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/index"
)

var (
	ErrQueryTimeout     = errors.New("query execution timeout")
	ErrHitLimitExceeded = errors.New("hit limit exceeded")
)

const defaultCheckInterval = 128

// LimitingCollector wraps a collector and aborts the search once a deadline
// passes or too many hits were collected. The abort surfaces as an error
// from Searcher.Search marked with ErrSearchAborted; docs collected before
// it remain in the wrapped collector.
type LimitingCollector struct {
	inner Collector

	Deadline time.Time
	MaxHits  int

	Hits int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewLimitingCollector wraps inner. A zero timeout disables the deadline and
// maxHits <= 0 disables the hit limit.
func NewLimitingCollector(inner Collector, timeout time.Duration, maxHits int) *LimitingCollector {
	if maxHits < 0 {
		maxHits = 0
	}
	c := &LimitingCollector{
		inner:         inner,
		MaxHits:       maxHits,
		checkInterval: defaultCheckInterval,
	}
	if timeout > 0 {
		c.Deadline = time.Now().Add(timeout)
	}
	return c
}

func (c *LimitingCollector) SetNextReader(leaf *index.LeafReader) {
	c.inner.SetNextReader(leaf)
	c.checkDeadline()
}

func (c *LimitingCollector) SetScorer(s Scorer)          { c.inner.SetScorer(s) }
func (c *LimitingCollector) AcceptsDocsOutOfOrder() bool { return c.inner.AcceptsDocsOutOfOrder() }

func (c *LimitingCollector) Collect(doc uint32) {
	if err := c.CheckLimits(); err != nil {
		panic(errors.Mark(err, ErrSearchAborted))
	}
	c.Hits++
	c.inner.Collect(doc)
}

// CheckLimits checks whether any limit has been exceeded.
// Time checks are amortized to avoid calling time.Now() on every hit.
func (c *LimitingCollector) CheckLimits() error {
	if c.MaxHits > 0 && c.Hits >= c.MaxHits {
		c.LimitExceeded = true
		return errors.Wrapf(ErrHitLimitExceeded, "max %d hits", c.MaxHits)
	}
	c.checkCounter++
	if c.checkCounter%c.checkInterval == 0 {
		return c.deadlineErr()
	}
	return nil
}

func (c *LimitingCollector) checkDeadline() {
	if err := c.deadlineErr(); err != nil {
		panic(errors.Mark(err, ErrSearchAborted))
	}
}

func (c *LimitingCollector) deadlineErr() error {
	if c.Deadline.IsZero() || !time.Now().After(c.Deadline) {
		return nil
	}
	c.TimedOut = true
	return ErrQueryTimeout
}
