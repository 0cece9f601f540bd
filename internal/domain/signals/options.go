package signals

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithIntensityCap bounds the summed base strength of one request.
func WithIntensityCap(limit float64) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.intensityCap = limit
		}
	}
}
