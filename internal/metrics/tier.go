// Package metrics computes per-jurisdiction boundary complexity and
// per-border-pair shared length, and classifies border pairs into tiers.
package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Default border-length tier thresholds (kilometers).
const (
	DefaultHighKM   = 500.0
	DefaultMediumKM = 200.0
)

// Thresholds are the border-length cut-offs for tier classification.
// Both bounds are exclusive: a length must exceed a threshold to reach its tier.
type Thresholds struct {
	HighKM   float64 `yaml:"border_tier_high_km" mapstructure:"border_tier_high_km"`
	MediumKM float64 `yaml:"border_tier_medium_km" mapstructure:"border_tier_medium_km"`
}

// DefaultThresholds returns the 500/200 km scheme.
func DefaultThresholds() Thresholds {
	return Thresholds{HighKM: DefaultHighKM, MediumKM: DefaultMediumKM}
}

// Validate rejects negative or inverted thresholds.
func (t Thresholds) Validate() error {
	if t.MediumKM < 0 || t.HighKM < 0 {
		return eris.Errorf("metrics: thresholds must be non-negative (high=%v, medium=%v)", t.HighKM, t.MediumKM)
	}
	if t.MediumKM > t.HighKM {
		return eris.Errorf("metrics: medium threshold %v exceeds high threshold %v", t.MediumKM, t.HighKM)
	}
	return nil
}

// Classify returns the tier for a shared border length.
//   - High: length > HighKM
//   - Medium: MediumKM < length <= HighKM
//   - Low: length <= MediumKM
func (t Thresholds) Classify(lengthKM float64) jurisdiction.Tier {
	switch {
	case lengthKM > t.HighKM:
		return jurisdiction.TierHigh
	case lengthKM > t.MediumKM:
		return jurisdiction.TierMedium
	default:
		return jurisdiction.TierLow
	}
}
