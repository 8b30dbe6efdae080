package pipeline

import "errors"

var (
	ErrInvalidKafkaConfig = errors.New("invalid Kafka configuration provided")
	ErrKafkaFetchFailed   = errors.New("failed to fetch message from Kafka")
	ErrOpenInputFailed    = errors.New("failed to open input")
	ErrEmptyBucketRange   = errors.New("resolved bucket range is empty")
	ErrComputeFailed      = errors.New("delta computation failed")
	ErrRenderFailed       = errors.New("render failed")
)
