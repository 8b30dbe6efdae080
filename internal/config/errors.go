package config

import "errors"

var (
	ErrReadingConfigFile   = errors.New("failed to read config file")
	ErrUnmarshallingConfig = errors.New("failed to unmarshal config")
	ErrConfigFileMissing   = errors.New("config file not found")
	ErrBindingFlag         = errors.New("failed to bind command-line flag")
	ErrInvalidNumRecords   = errors.New("display num_records must be >= 1")
	ErrInvalidBucketRange  = errors.New("display bucket range is invalid")
	ErrInvalidScreenDelay  = errors.New("display screen_delay must be >= 0")
	ErrInvalidDebugLevel   = errors.New("display debug_level must be >= 0")
	ErrInvalidLatencyUnit  = errors.New("display latency_unit must be one of millisec, microsec, nanosec")
	ErrInvalidColorMode    = errors.New("display color must be one of auto, always, never")
	ErrNoMapsEnabled       = errors.New("at least one of frequency_map or intensity_map must be enabled")
	ErrInvalidInputSource  = errors.New("input source must be one of stdin, file, kafka")
	ErrEmptyInputPath      = errors.New("input path cannot be empty for file input")
	ErrEmptyKafkaBrokers   = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic     = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID   = errors.New("kafka groupID cannot be empty")
)
