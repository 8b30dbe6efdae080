package record

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is the parent of every parse failure. A violation is fatal for the session.
var ErrProtocolViolation = errors.New("protocol violation")

var (
	ErrUnexpectedEnd      = fmt.Errorf("%w: end of stream inside a record", ErrProtocolViolation)
	ErrMalformedLine      = fmt.Errorf("%w: cannot process record line", ErrProtocolViolation)
	ErrNotPowerOfTwo      = fmt.Errorf("%w: bucket value must be a power of 2", ErrProtocolViolation)
	ErrUnknownLatencyUnit = fmt.Errorf("%w: unknown latency unit", ErrProtocolViolation)
	ErrUnknownDataSource  = fmt.Errorf("%w: unknown datasource, use one of bpf, systemtap, dtrace, oracle", ErrProtocolViolation)
	ErrReadFailed         = errors.New("failed to read input stream")
)
