// Package heatmap holds the data the heat maps are drawn from: the resolved bucket
// range, the per-interval rate records and the scrolling window of those records.
package heatmap

// BucketRange is the inclusive range of bucket exponents shown as rows.
type BucketRange struct {
	Min int
	Max int
}

// Rows returns the number of rows in the range.
func (r BucketRange) Rows() int {
	return r.Max - r.Min + 1
}

// Clamp folds an out-of-range bucket into the nearest edge.
func (r BucketRange) Clamp(bucket int) int {
	if bucket > r.Max {
		return r.Max
	}
	if bucket < r.Min {
		return r.Min
	}
	return bucket
}

// Metric selects one of the two series carried by an EnrichedRecord.
type Metric int

const (
	Frequency Metric = iota
	Intensity
)

func (m Metric) String() string {
	if m == Intensity {
		return "intensity"
	}
	return "frequency"
}

// EnrichedRecord holds per-interval rates derived from two consecutive raw records.
// The zero value is an empty column.
type EnrichedRecord struct {
	Range BucketRange

	// Frequency and Intensity are dense over Range: index i is bucket Range.Min+i.
	Frequency []float64
	Intensity []float64

	// DeltaTime is the time between this record and the previous one, in microseconds.
	DeltaTime int64

	MaxFrequency float64
	SumFrequency float64
	MaxIntensity float64
	SumIntensity float64

	Date  string
	Label string
}

// NewEnrichedRecord allocates zeroed histograms over rng.
func NewEnrichedRecord(rng BucketRange) EnrichedRecord {
	return EnrichedRecord{
		Range:     rng,
		Frequency: make([]float64, rng.Rows()),
		Intensity: make([]float64, rng.Rows()),
	}
}

// Value returns the metric for bucket, or 0 when the bucket is outside the record's range.
func (e EnrichedRecord) Value(m Metric, bucket int) float64 {
	series := e.Frequency
	if m == Intensity {
		series = e.Intensity
	}
	i := bucket - e.Range.Min
	if i < 0 || i >= len(series) {
		return 0
	}
	return series[i]
}

// Max returns the per-record maximum of m.
func (e EnrichedRecord) Max(m Metric) float64 {
	if m == Intensity {
		return e.MaxIntensity
	}
	return e.MaxFrequency
}

// Sum returns the per-record sum of m.
func (e EnrichedRecord) Sum(m Metric) float64 {
	if m == Intensity {
		return e.SumIntensity
	}
	return e.SumFrequency
}

// Summarize fills the aggregates from the histograms.
func (e *EnrichedRecord) Summarize() {
	e.MaxFrequency, e.SumFrequency = maxSum(e.Frequency)
	e.MaxIntensity, e.SumIntensity = maxSum(e.Intensity)
}

func maxSum(series []float64) (maxVal, sum float64) {
	for i, v := range series {
		if i == 0 || v > maxVal {
			maxVal = v
		}
		sum += v
	}
	return maxVal, sum
}
