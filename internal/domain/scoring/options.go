package scoring

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithClampBounds sets the band the calibrated probability is clamped to.
func WithClampBounds(lower, upper float64) Option {
	return func(m *Model) {
		if lower >= 0 && upper <= 100 && lower < upper {
			m.clampMin = lower
			m.clampMax = upper
		}
	}
}

// WithNeutralProbability sets the midpoint low-confidence scores regress to.
func WithNeutralProbability(p float64) Option {
	return func(m *Model) {
		if p > 0 && p < 100 {
			m.neutral = p
		}
	}
}

// WithMinShrink sets the fraction of the distance from neutral kept at zero
// confidence.
func WithMinShrink(s float64) Option {
	return func(m *Model) {
		if s >= 0 && s <= 1 {
			m.minShrink = s
		}
	}
}
