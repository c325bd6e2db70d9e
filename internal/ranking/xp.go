package ranking

import (
	"encoding/json"
	"fmt"

	model "github.com/campushire/ranking-backend/internal/models"
)

// xpDelta computes the XP delta and target category for an event. Most kinds
// carry a fixed configured value; assessments scale with the score percentage
// and corrections carry their delta in metadata.
func (e *Engine) xpDelta(kind model.EventKind, metadata map[string]interface{}) (int, string, error) {
	switch kind {
	case model.KindAssessmentCompleted:
		pct, ok := metaNumber(metadata, "score_percent")
		if !ok {
			return 0, "", fmt.Errorf("%w: assessment_completed requires numeric score_percent", ErrBadMetadata)
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		delta := e.cfg.AssessmentBaseXP + (e.cfg.AssessmentPercentXP*int(pct))/100
		return delta, kind.Category(), nil

	case model.KindCorrection:
		delta, ok := metaNumber(metadata, "xp_delta")
		if !ok {
			return 0, "", fmt.Errorf("%w: correction requires numeric xp_delta", ErrBadMetadata)
		}
		category, _ := metadata["category"].(string)
		return int(delta), category, nil

	default:
		delta, ok := e.cfg.XPValues[kind]
		if !ok {
			return 0, "", ErrUnknownKind
		}
		return delta, kind.Category(), nil
	}
}

// metaNumber reads a numeric metadata field. JSON decoding yields float64, but
// callers constructing events in Go tend to pass ints, so both are accepted.
func metaNumber(metadata map[string]interface{}, key string) (float64, bool) {
	if metadata == nil {
		return 0, false
	}
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
