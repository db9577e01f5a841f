package bench

// Variant names for result rows.
const (
	VariantRaw        = "raw"
	VariantStream     = "stream"
	VariantCompressed = "compressed"
	VariantTable      = "table"
)

// Result is one row of benchmark output: a single (dataset, variant)
// measurement or the failure that aborted it.
type Result struct {
	Dataset       string  `json:"dataset"`
	Format        string  `json:"format"`
	Variant       string  `json:"variant"`
	PayloadBytes  int64   `json:"payload_bytes"`
	Reps          int     `json:"reps"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	TimePerByteNs float64 `json:"time_per_byte_ns"`
	MeanMs        float64 `json:"mean_ms"`
	P99Ms         float64 `json:"p99_ms"`
	Error         string  `json:"error,omitempty"`
}

// Failed reports whether this row records an aborted measurement.
func (r Result) Failed() bool {
	return r.Error != ""
}
