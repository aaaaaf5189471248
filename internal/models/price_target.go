package models

// PriceTarget is an analyst consensus target normalized across providers.
// Every numeric field is nullable.
type PriceTarget struct {
	Source           string   `json:"source"`
	TargetHigh       *float64 `json:"targetHigh"`
	TargetLow        *float64 `json:"targetLow"`
	TargetMean       *float64 `json:"targetMean"`
	TargetMedian     *float64 `json:"targetMedian"`
	NumberOfAnalysts int      `json:"numberOfAnalysts,omitempty"`
}

// HasAny reports whether at least one numeric field is set
func (p *PriceTarget) HasAny() bool {
	return p != nil && (p.TargetHigh != nil || p.TargetLow != nil || p.TargetMean != nil || p.TargetMedian != nil)
}

// Float returns a pointer to v, or nil when v is not a usable price
func Float(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
