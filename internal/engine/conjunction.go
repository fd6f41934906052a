package engine

import "sort"

// ConjunctionScorer implements AND logic over multiple scorers. It uses the
// lowest-cost scorer as the lead and advances all others to alignment. The
// score is the sum of the sub-scores.
type ConjunctionScorer struct {
	subs    []Scorer
	lead    Scorer
	current uint32
}

// NewConjunctionScorer creates an AND scorer over subs, which must not be
// empty.
func NewConjunctionScorer(subs []Scorer) *ConjunctionScorer {
	// Sort by cost ascending so the cheapest scorer leads.
	sorted := make([]Scorer, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})

	return &ConjunctionScorer{
		subs: sorted,
		lead: sorted[0],
	}
}

func (c *ConjunctionScorer) Next() bool {
	if !c.lead.Next() {
		c.current = NoMoreDocs
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionScorer) DocID() uint32 {
	return c.current
}

// Freq returns the number of sub-scorers, all of which match.
func (c *ConjunctionScorer) Freq() uint32 {
	return uint32(len(c.subs))
}

func (c *ConjunctionScorer) Score() float32 {
	var sum float32
	for _, s := range c.subs {
		sum += s.Score()
	}
	return sum
}

func (c *ConjunctionScorer) Advance(target uint32) bool {
	if !c.lead.Advance(target) {
		c.current = NoMoreDocs
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionScorer) Cost() int64 {
	return c.lead.Cost()
}

func (c *ConjunctionScorer) Children() []Scorer {
	return c.subs
}

// align advances all scorers until they all point to the same document.
func (c *ConjunctionScorer) align(target uint32) bool {
	for {
		allAligned := true
		for _, sub := range c.subs {
			if sub == c.lead {
				continue
			}
			if !sub.Advance(target) {
				c.current = NoMoreDocs
				return false
			}
			if sub.DocID() > target {
				target = sub.DocID()
				if !c.lead.Advance(target) {
					c.current = NoMoreDocs
					return false
				}
				// Lead may have landed past target.
				target = c.lead.DocID()
				allAligned = false
				break
			}
		}
		if allAligned {
			c.current = target
			return true
		}
	}
}
