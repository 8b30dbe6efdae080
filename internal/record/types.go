package record

import (
	"fmt"
	"sort"
)

// DataSource identifies the tracer that produced a record. It selects the
// multiplier used to approximate time waited inside a power-of-two bucket.
type DataSource string

const (
	SourceOracle    DataSource = "oracle"
	SourceBPF       DataSource = "bpf"
	SourceSystemTap DataSource = "systemtap"
	SourceDTrace    DataSource = "dtrace"

	// DefaultSource applies to records without a datasource line.
	DefaultSource = SourceBPF
)

// ParseDataSource validates a lower-cased datasource tag.
func ParseDataSource(s string) (DataSource, error) {
	switch ds := DataSource(s); ds {
	case SourceOracle, SourceBPF, SourceSystemTap, SourceDTrace:
		return ds, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataSource, s)
}

// Multiplier returns the average position of a sample inside its bucket, as a
// fraction of the bucket upper bound. Oracle wait histograms bucket by "less than",
// the kernel tracers by "less than twice", hence the factor-of-two difference.
func (ds DataSource) Multiplier() (float64, error) {
	switch ds {
	case SourceOracle:
		return 0.75, nil
	case SourceBPF, SourceSystemTap, SourceDTrace:
		return 1.5, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDataSource, string(ds))
}

// LatencyUnit is the unit of the bucket values on the wire.
type LatencyUnit string

const (
	UnitMillisec LatencyUnit = "millisec"
	UnitMicrosec LatencyUnit = "microsec"
	UnitNanosec  LatencyUnit = "nanosec"
)

// ParseLatencyUnit validates a lower-cased latency unit.
func ParseLatencyUnit(s string) (LatencyUnit, error) {
	switch u := LatencyUnit(s); u {
	case UnitMillisec, UnitMicrosec, UnitNanosec:
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLatencyUnit, s)
}

// Milliseconds converts a value expressed in this unit to milliseconds.
func (u LatencyUnit) Milliseconds(v float64) float64 {
	switch u {
	case UnitMicrosec:
		return v / 1e3
	case UnitNanosec:
		return v / 1e6
	default:
		return v
	}
}

// RawRecord is one parsed sample: cumulative counts per bucket exponent plus metadata.
// The zero value is the "no previous record" sentinel used for the first delta.
type RawRecord struct {
	// Buckets maps the bucket exponent (log2 of the bucket upper bound) to a cumulative count.
	Buckets map[int]int64

	// Timestamp is epoch microseconds, 0 when the record carried no timestamp line.
	Timestamp int64
	Date      string
	Label     string
	Source    DataSource

	// Unit is empty unless the record declared a latencyunit line.
	Unit LatencyUnit
}

// New returns an empty record with the default data source.
func New() *RawRecord {
	return &RawRecord{
		Buckets: make(map[int]int64),
		Source:  DefaultSource,
	}
}

// Add accumulates count into bucket. Repeated exponents within one record sum.
func (r *RawRecord) Add(bucket int, count int64) {
	if r.Buckets == nil {
		r.Buckets = make(map[int]int64)
	}
	r.Buckets[bucket] += count
}

// Count returns the cumulative count for bucket, 0 when absent.
func (r *RawRecord) Count(bucket int) int64 {
	if r == nil {
		return 0
	}
	return r.Buckets[bucket]
}

// SortedBuckets returns the bucket exponents present in the record in ascending order.
func (r *RawRecord) SortedBuckets() []int {
	keys := make([]int, 0, len(r.Buckets))
	for b := range r.Buckets {
		keys = append(keys, b)
	}
	sort.Ints(keys)
	return keys
}

// String renders the record for debug logs.
func (r *RawRecord) String() string {
	s := fmt.Sprintf("timestamp=%d date=%q label=%q source=%s unit=%s buckets={", r.Timestamp, r.Date, r.Label, r.Source, r.Unit)
	for i, b := range r.SortedBuckets() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d:%d", b, r.Buckets[b])
	}
	return s + "}"
}
