package record

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	BeginTag       = "<begin record>"
	EndTag         = "<end record>"
	timestampTag   = "timestamp"
	microsecTag    = "microsec"
	labelTag       = "label"
	datasourceTag  = "datasource"
	latencyUnitTag = "latencyunit"

	// powerOfTwoTolerance bounds |round(log2 v) - log2 v| for a bucket value.
	powerOfTwoTolerance = 1e-6
)

// Reader scans a line stream for tagged records.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	logger  *zap.Logger
}

// NewReader wraps r. Lines up to 1 MiB are accepted.
func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{
		scanner: scanner,
		logger:  logger,
	}
}

// Next skips to the next begin marker and parses the record body up to the end marker.
// It returns io.EOF when the stream ends while no record is in progress.
func (r *Reader) Next() (*RawRecord, error) {
	if err := r.awaitBegin(); err != nil {
		return nil, err
	}
	begin := r.line

	rec := New()
	for {
		line, err := r.nextLine()
		if err == io.EOF {
			return nil, fmt.Errorf("%w (record started at line %d)", ErrUnexpectedEnd, begin)
		}
		if err != nil {
			return nil, err
		}
		done, err := r.parseLine(rec, line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", err, r.line, line)
		}
		if done {
			r.logger.Debug("Record parsed",
				zap.Int("begin_line", begin),
				zap.Int("end_line", r.line),
				zap.Int("buckets", len(rec.Buckets)),
			)
			return rec, nil
		}
	}
}

func (r *Reader) awaitBegin() error {
	for {
		line, err := r.nextLine()
		if err != nil {
			return err
		}
		if line == BeginTag {
			return nil
		}
	}
}

// nextLine returns the next non-blank line, trimmed and lower-cased.
func (r *Reader) nextLine() (string, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line != "" {
			return strings.ToLower(line), nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return "", io.EOF
}

// parseLine applies one body line to rec and reports whether it was the end marker.
func (r *Reader) parseLine(rec *RawRecord, line string) (bool, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	switch {
	case len(fields) == 1 && fields[0] == EndTag:
		return true, nil

	case len(fields) == 4 && fields[0] == timestampTag && fields[1] == microsecTag:
		ts, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return false, fmt.Errorf("%w: bad timestamp: %w", ErrMalformedLine, err)
		}
		rec.Timestamp = ts
		rec.Date = fields[3]
		return false, nil

	case len(fields) == 2 && fields[0] == labelTag:
		rec.Label = fields[1]
		return false, nil

	case len(fields) == 2 && fields[0] == datasourceTag:
		ds, err := ParseDataSource(fields[1])
		if err != nil {
			return false, err
		}
		rec.Source = ds
		return false, nil

	case len(fields) == 2 && fields[0] == latencyUnitTag:
		unit, err := ParseLatencyUnit(fields[1])
		if err != nil {
			return false, err
		}
		rec.Unit = unit
		return false, nil

	case len(fields) == 2:
		bucket, count, err := parseDataLine(fields[0], fields[1])
		if err != nil {
			return false, err
		}
		rec.Add(bucket, count)
		return false, nil
	}

	return false, ErrMalformedLine
}

// parseDataLine turns "<power_of_two_value>,<count>" into a bucket exponent and a count.
func parseDataLine(value, count string) (int, int64, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad bucket value: %w", ErrMalformedLine, err)
	}
	c, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad count: %w", ErrMalformedLine, err)
	}
	bucket, ok := BucketExponent(v)
	if !ok {
		return 0, 0, ErrNotPowerOfTwo
	}
	return bucket, c, nil
}

// BucketExponent returns log2(v) when v is a power of two.
func BucketExponent(v int64) (int, bool) {
	if v <= 0 {
		return 0, false
	}
	l := math.Log2(float64(v))
	rounded := math.Round(l)
	if math.Abs(rounded-l) > powerOfTwoTolerance {
		return 0, false
	}
	return int(rounded), true
}
