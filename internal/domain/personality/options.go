package personality

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithPerTokenWeight sets how much membership a single trait token adds.
func WithPerTokenWeight(w float64) Option {
	return func(c *Classifier) {
		if w > 0 && w <= 1 {
			c.perTokenWeight = w
		}
	}
}

// WithPurityThreshold sets the dominant-minus-secondary gap above which an
// estimate counts as a pure type.
func WithPurityThreshold(t float64) Option {
	return func(c *Classifier) {
		if t > 0 && t <= 1 {
			c.purityThreshold = t
		}
	}
}

// WithClosenessThreshold sets the gap below which the runner-up is reported
// as a secondary dimension.
func WithClosenessThreshold(t float64) Option {
	return func(c *Classifier) {
		if t > 0 && t <= 1 {
			c.closenessThreshold = t
		}
	}
}

// WithMinPureEvidence sets the minimum token count for a pure-type call.
func WithMinPureEvidence(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.minPureEvidence = n
		}
	}
}

// WithTokenGranularity sets the signal strength represented by one trait token.
func WithTokenGranularity(points float64) Option {
	return func(c *Classifier) {
		if points > 0 {
			c.tokenGranularity = points
		}
	}
}
