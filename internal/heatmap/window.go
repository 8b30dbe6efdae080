package heatmap

// Window is the fixed-width time axis of the display: NumRecords+1 columns,
// oldest at index 0 and newest at the end. It is owned by a single loop and is not
// safe for concurrent use.
type Window struct {
	records []EnrichedRecord
	samples int
}

// NewWindow returns a window pre-filled with empty columns so the first frame is fully drawn.
func NewWindow(numRecords int) *Window {
	if numRecords < 1 {
		numRecords = 1
	}
	return &Window{
		records: make([]EnrichedRecord, numRecords+1),
	}
}

// Append discards the oldest column and adds rec as the newest one.
func (w *Window) Append(rec EnrichedRecord) {
	copy(w.records, w.records[1:])
	w.records[len(w.records)-1] = rec
	w.samples++
}

// Records returns the columns, oldest first. The slice must not be modified.
func (w *Window) Records() []EnrichedRecord {
	return w.records
}

// Len returns the fixed number of columns.
func (w *Window) Len() int {
	return len(w.records)
}

// Latest returns the newest column.
func (w *Window) Latest() EnrichedRecord {
	return w.records[len(w.records)-1]
}

// Samples returns how many records have been appended so far.
func (w *Window) Samples() int {
	return w.samples
}

// Max returns the largest single-cell value of m across the window.
func (w *Window) Max(m Metric) float64 {
	var out float64
	for i, r := range w.records {
		if v := r.Max(m); i == 0 || v > out {
			out = v
		}
	}
	return out
}

// MaxSum returns the largest per-column sum of m across the window.
func (w *Window) MaxSum(m Metric) float64 {
	var out float64
	for i, r := range w.records {
		if v := r.Sum(m); i == 0 || v > out {
			out = v
		}
	}
	return out
}

// Total returns the sum of m over every cell in the window.
func (w *Window) Total(m Metric) float64 {
	var out float64
	for _, r := range w.records {
		out += r.Sum(m)
	}
	return out
}
