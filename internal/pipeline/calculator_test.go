package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sanspareilsmyn/latencymap/internal/config"
	"github.com/sanspareilsmyn/latencymap/internal/heatmap"
	"github.com/sanspareilsmyn/latencymap/internal/record"
)

func rawRecord(ts int64, source record.DataSource, buckets map[int]int64) *record.RawRecord {
	rec := record.New()
	rec.Timestamp = ts
	rec.Source = source
	for b, c := range buckets {
		rec.Add(b, c)
	}
	return rec
}

func autotuneDisplay() config.DisplayConfig {
	return config.DisplayConfig{MinBucket: config.AutotuneMinBucket, MaxBucket: config.AutotuneMaxBucket}
}

func TestCalculator_RatesOverThreeSeconds(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	rng := heatmap.BucketRange{Min: 0, Max: 11}
	const t0 = int64(1_700_000_000_000_000)

	prev := rawRecord(t0, record.SourceOracle, map[int]int64{7: 100})
	cur := rawRecord(t0+3_000_000, record.SourceOracle, map[int]int64{7: 150})

	out, err := c.Compute(cur, prev, rng)
	require.NoError(t, err)

	assert.Equal(t, int64(3_000_000), out.DeltaTime)
	assert.InDelta(t, 16.67, out.Value(heatmap.Frequency, 7), 0.01)
	assert.InDelta(t, 1600.0, out.Value(heatmap.Intensity, 7), 1e-9)
	assert.InDelta(t, 16.67, out.SumFrequency, 0.01)
	assert.InDelta(t, 1600.0, out.MaxIntensity, 1e-9)
}

func TestCalculator_KernelSourcesUseLargerMultiplier(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	rng := heatmap.BucketRange{Min: 0, Max: 11}

	for _, ds := range []record.DataSource{record.SourceBPF, record.SourceSystemTap, record.SourceDTrace} {
		prev := rawRecord(1_000_000, ds, map[int]int64{3: 10})
		cur := rawRecord(2_000_000, ds, map[int]int64{3: 30})

		out, err := c.Compute(cur, prev, rng)
		require.NoError(t, err)
		assert.Equal(t, 20.0, out.Value(heatmap.Frequency, 3), ds)
		assert.Equal(t, 1.5*20*8, out.Value(heatmap.Intensity, 3), ds)
	}
}

func TestCalculator_MissingTimestampsUseUnitTimeFactor(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	rng := heatmap.BucketRange{Min: 0, Max: 3}

	prev := rawRecord(0, record.SourceBPF, map[int]int64{1: 4})
	cur := rawRecord(0, record.SourceBPF, map[int]int64{1: 10})

	out, err := c.Compute(cur, prev, rng)
	require.NoError(t, err)
	assert.Zero(t, out.DeltaTime)
	assert.Equal(t, 6.0, out.Value(heatmap.Frequency, 1))
}

func TestCalculator_OutOfRangeBucketsFoldIntoEdges(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	rng := heatmap.BucketRange{Min: 7, Max: 9}

	prev := rawRecord(0, record.SourceBPF, nil)
	cur := rawRecord(1_000_000, record.SourceBPF, map[int]int64{
		2:  1, // below
		5:  2, // below
		8:  4,
		10: 8,  // above
		20: 16, // above
	})

	out, err := c.Compute(cur, prev, rng)
	require.NoError(t, err)

	assert.Equal(t, 3.0, out.Value(heatmap.Frequency, 7), "contributions below the range sum into the bottom row")
	assert.Equal(t, 4.0, out.Value(heatmap.Frequency, 8))
	assert.Equal(t, 24.0, out.Value(heatmap.Frequency, 9), "contributions above the range sum into the top row")
	assert.Equal(t, 31.0, out.SumFrequency)
	assert.Equal(t, 24.0, out.MaxFrequency)

	// Intensity keeps the source bucket's own value before folding.
	wantTop := 1.5*8*1024 + 1.5*16*1048576
	assert.Equal(t, wantTop, out.Value(heatmap.Intensity, 9))
}

func TestCalculator_NegativeDeltaPassesThrough(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCalculator(zap.New(core))
	rng := heatmap.BucketRange{Min: 0, Max: 3}

	prev := rawRecord(0, record.SourceBPF, map[int]int64{2: 50})
	cur := rawRecord(2_000_000, record.SourceBPF, map[int]int64{2: 10})

	out, err := c.Compute(cur, prev, rng)
	require.NoError(t, err)
	assert.Equal(t, -20.0, out.Value(heatmap.Frequency, 2))
	assert.Equal(t, -20.0, out.SumFrequency)

	entries := logs.FilterMessage("Cumulative count decreased, passing negative delta through").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["bucket"])
}

func TestCalculator_BucketsOnlyInPreviousAreIgnored(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	rng := heatmap.BucketRange{Min: 0, Max: 3}

	prev := rawRecord(0, record.SourceBPF, map[int]int64{1: 5, 2: 5})
	cur := rawRecord(1_000_000, record.SourceBPF, map[int]int64{2: 9})

	out, err := c.Compute(cur, prev, rng)
	require.NoError(t, err)
	assert.Zero(t, out.Value(heatmap.Frequency, 1))
	assert.Equal(t, 4.0, out.Value(heatmap.Frequency, 2))
}

func TestCalculator_UnknownSourceFails(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	cur := rawRecord(0, record.DataSource("perf"), map[int]int64{1: 1})

	_, err := c.Compute(cur, &record.RawRecord{}, heatmap.BucketRange{Min: 0, Max: 1})
	assert.ErrorIs(t, err, record.ErrUnknownDataSource)
}

func TestCalculator_FirstIsEmpty(t *testing.T) {
	c := NewCalculator(zap.NewNop())
	cur := rawRecord(5_000_000, record.SourceBPF, map[int]int64{3: 100})
	cur.Date = "now"

	out := c.First(cur, heatmap.BucketRange{Min: 0, Max: 11})
	assert.Len(t, out.Frequency, 12)
	assert.Zero(t, out.SumFrequency)
	assert.Zero(t, out.SumIntensity)
	assert.Zero(t, out.DeltaTime)
	assert.Equal(t, "now", out.Date)
}

func TestCalculator_Autotune(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	tests := []struct {
		unit record.LatencyUnit
		want heatmap.BucketRange
	}{
		{record.UnitMillisec, heatmap.BucketRange{Min: 0, Max: 11}},
		{record.UnitMicrosec, heatmap.BucketRange{Min: 7, Max: 18}},
		{record.UnitNanosec, heatmap.BucketRange{Min: 17, Max: 28}},
	}
	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got, err := c.Autotune(autotuneDisplay(), tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_AutotuneRespectsOverrides(t *testing.T) {
	c := NewCalculator(zap.NewNop())

	d := autotuneDisplay()
	d.MinBucket = 3
	got, err := c.Autotune(d, record.UnitNanosec)
	require.NoError(t, err)
	assert.Equal(t, heatmap.BucketRange{Min: 3, Max: 14}, got)

	d = autotuneDisplay()
	d.MaxBucket = 10
	got, err = c.Autotune(d, record.UnitMicrosec)
	require.NoError(t, err)
	assert.Equal(t, heatmap.BucketRange{Min: 7, Max: 10}, got)

	d.MaxBucket = 5
	_, err = c.Autotune(d, record.UnitMicrosec)
	assert.ErrorIs(t, err, ErrEmptyBucketRange)
}
