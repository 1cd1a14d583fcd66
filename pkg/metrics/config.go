package metrics

// Config configures a PrometheusProvider.
type Config struct {
	Namespace          string
	HTTPRequestBuckets []float64
	RemoteFetchBuckets []float64
}

// DefaultConfig returns RAMOSE's default bucket boundaries: fine
// granularity around typical local-HTTP latency for requests, wider
// and shifted upward for remote SPARQL fetches.
func DefaultConfig() *Config {
	cfg := &Config{Namespace: "ramose"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in any zero-valued field.
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "ramose"
	}
	if len(c.HTTPRequestBuckets) == 0 {
		c.HTTPRequestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	}
	if len(c.RemoteFetchBuckets) == 0 {
		c.RemoteFetchBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}
	}
}
