package pipeline

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/heatmap"
	"github.com/sanspareilsmyn/latencymap/internal/record"
)

// autotuneRows is the height of the display when the upper bucket is autotuned.
const autotuneRows = 12

// autotuneMin is the default visible floor per wire unit, about 0.1-1 ms of device latency.
var autotuneMin = map[record.LatencyUnit]int{
	record.UnitMillisec: 0,  // 1 ms
	record.UnitMicrosec: 7,  // 128 us
	record.UnitNanosec:  17, // 131072 ns
}

// Calculator turns consecutive cumulative histograms into per-second rates.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a new Calculator instance.
func NewCalculator(logger *zap.Logger) *Calculator {
	return &Calculator{logger: logger}
}

// Autotune resolves the bucket range from the display settings and the latency unit
// in force when the first record arrives.
func (c *Calculator) Autotune(display config.DisplayConfig, unit record.LatencyUnit) (heatmap.BucketRange, error) {
	rng := heatmap.BucketRange{Min: display.MinBucket, Max: display.MaxBucket}
	if display.AutotuneMin() {
		minBucket, ok := autotuneMin[unit]
		if !ok {
			return heatmap.BucketRange{}, fmt.Errorf("%w: %q", record.ErrUnknownLatencyUnit, string(unit))
		}
		rng.Min = minBucket
	}
	if display.AutotuneMax() {
		rng.Max = rng.Min + autotuneRows - 1
	}
	if rng.Min > rng.Max {
		return heatmap.BucketRange{}, fmt.Errorf("%w: min_bucket %d > max_bucket %d", ErrEmptyBucketRange, rng.Min, rng.Max)
	}

	c.logger.Info("Bucket range resolved",
		zap.Int("min_bucket", rng.Min),
		zap.Int("max_bucket", rng.Max),
		zap.String("latency_unit", string(unit)),
		zap.Bool("autotuned_min", display.AutotuneMin()),
		zap.Bool("autotuned_max", display.AutotuneMax()),
	)
	return rng, nil
}

// First builds the column for the first record of a session: there is nothing to diff
// against yet, so the histograms stay zero and only the metadata is carried.
func (c *Calculator) First(cur *record.RawRecord, rng heatmap.BucketRange) heatmap.EnrichedRecord {
	out := heatmap.NewEnrichedRecord(rng)
	out.Date = cur.Date
	out.Label = cur.Label
	return out
}

// Compute diffs cur against prev and returns events/sec and time-waited/sec per bucket.
// Negative deltas (an upstream counter reset) are passed through unmodified.
func (c *Calculator) Compute(cur, prev *record.RawRecord, rng heatmap.BucketRange) (heatmap.EnrichedRecord, error) {
	k, err := cur.Source.Multiplier()
	if err != nil {
		return heatmap.EnrichedRecord{}, err
	}

	out := heatmap.NewEnrichedRecord(rng)
	out.Date = cur.Date
	out.Label = cur.Label
	out.DeltaTime = cur.Timestamp - prev.Timestamp

	timeFactor := 1.0
	if out.DeltaTime > 0 {
		timeFactor = float64(out.DeltaTime) / 1e6
	}

	for _, bucket := range cur.SortedBuckets() {
		delta := float64(cur.Count(bucket) - prev.Count(bucket))
		if delta < 0 {
			c.logger.Debug("Cumulative count decreased, passing negative delta through",
				zap.Int("bucket", bucket),
				zap.Int64("current", cur.Count(bucket)),
				zap.Int64("previous", prev.Count(bucket)),
			)
		}

		i := rng.Clamp(bucket) - rng.Min
		out.Frequency[i] += delta / timeFactor
		out.Intensity[i] += k * delta * math.Exp2(float64(bucket)) / timeFactor
	}

	out.Summarize()
	return out, nil
}
