package join

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ScoreMode is how the scores of several matching docs are combined into the
// score of the doc they join to.
type ScoreMode int

const (
	// ScoreModeNone does no scoring.
	ScoreModeNone ScoreMode = iota
	// ScoreModeAvg scores with the mean of the matching scores.
	ScoreModeAvg
	// ScoreModeMax scores with the highest matching score.
	ScoreModeMax
	// ScoreModeTotal scores with the sum of the matching scores.
	ScoreModeTotal
)

func (m ScoreMode) String() string {
	switch m {
	case ScoreModeNone:
		return "none"
	case ScoreModeAvg:
		return "avg"
	case ScoreModeMax:
		return "max"
	case ScoreModeTotal:
		return "total"
	default:
		return "unknown"
	}
}

// ParseScoreMode parses the lower or upper case name of a score mode.
func ParseScoreMode(s string) (ScoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ScoreModeNone, nil
	case "avg":
		return ScoreModeAvg, nil
	case "max":
		return ScoreModeMax, nil
	case "total":
		return ScoreModeTotal, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedScoreMode, "%q", s)
	}
}
