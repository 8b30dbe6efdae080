package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AutotuneMinBucket asks the engine to derive the lowest bucket from the first record's latency unit.
	AutotuneMinBucket = -1
	// AutotuneMaxBucket asks the engine to place the highest bucket a fixed number of rows above the lowest one.
	AutotuneMaxBucket = 64
	// AutoMaxVal lets the color scale follow the window maximum.
	AutoMaxVal = -1.0

	defaultNumRecords    = 90
	defaultScreenDelay   = 0.1
	defaultDebugLevel    = 0
	defaultLatencyUnit   = "millisec"
	defaultColorMode     = "auto"
	defaultInputSource   = "stdin"
	defaultKafkaGroupID  = "latencymap-default-group"
	defaultLogLevel      = "warn"
	defaultLogFormat     = "console"
	defaultLogFileEnable = false
	defaultLogDirectory  = "log"
	defaultLogFilename   = "latencymap.log"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 3
	defaultLogMaxAgeDays = 7
	defaultLogCompress   = false

	// Environment variable prefix
	envPrefix = "LATENCYMAP"
)

type Config struct {
	Display DisplayConfig `mapstructure:"display"`
	Input   InputConfig   `mapstructure:"input"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// DisplayConfig holds the engine and heat map parameters. It is resolved once at startup
// and never mutated afterwards; the bucket range produced by autotune lives with the session.
type DisplayConfig struct {
	NumRecords      int     `mapstructure:"num_records"`
	MinBucket       int     `mapstructure:"min_bucket"`
	MaxBucket       int     `mapstructure:"max_bucket"`
	FrequencyMaxVal float64 `mapstructure:"frequency_maxval"`
	IntensityMaxVal float64 `mapstructure:"intensity_maxval"`
	LatencyUnit     string  `mapstructure:"latency_unit"`
	ScreenDelay     float64 `mapstructure:"screen_delay"` // seconds
	DebugLevel      int     `mapstructure:"debug_level"`
	PrintLegend     bool    `mapstructure:"print_legend"`
	FrequencyMap    bool    `mapstructure:"frequency_map"`
	IntensityMap    bool    `mapstructure:"intensity_map"`
	Color           string  `mapstructure:"color"` // auto, always, never
}

type InputConfig struct {
	Source string      `mapstructure:"source"` // stdin, file, kafka
	Path   string      `mapstructure:"path"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type MetricsConfig struct {
	ListenAddress string `mapstructure:"listenAddress"` // empty disables the endpoint
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// AutotuneMin reports whether the lower bucket is left to autotune.
func (d DisplayConfig) AutotuneMin() bool { return d.MinBucket == AutotuneMinBucket }

// AutotuneMax reports whether the upper bucket is left to autotune.
func (d DisplayConfig) AutotuneMax() bool { return d.MaxBucket == AutotuneMaxBucket }

// Delay converts ScreenDelay to a duration.
func (d DisplayConfig) Delay() time.Duration {
	return time.Duration(d.ScreenDelay * float64(time.Second))
}

// Load initializes viper, applies defaults, reads an optional config file, binds the
// command-line flags, unmarshals, and validates.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	cfg.Display.LatencyUnit = strings.ToLower(strings.TrimSpace(cfg.Display.LatencyUnit))
	cfg.Display.Color = strings.ToLower(strings.TrimSpace(cfg.Display.Color))
	cfg.Input.Source = strings.ToLower(strings.TrimSpace(cfg.Input.Source))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("display.num_records", defaultNumRecords)
	v.SetDefault("display.min_bucket", AutotuneMinBucket)
	v.SetDefault("display.max_bucket", AutotuneMaxBucket)
	v.SetDefault("display.frequency_maxval", AutoMaxVal)
	v.SetDefault("display.intensity_maxval", AutoMaxVal)
	v.SetDefault("display.latency_unit", defaultLatencyUnit)
	v.SetDefault("display.screen_delay", defaultScreenDelay)
	v.SetDefault("display.debug_level", defaultDebugLevel)
	v.SetDefault("display.print_legend", true)
	v.SetDefault("display.frequency_map", true)
	v.SetDefault("display.intensity_map", true)
	v.SetDefault("display.color", defaultColorMode)
	v.SetDefault("input.source", defaultInputSource)
	v.SetDefault("input.path", "")
	v.SetDefault("input.kafka.brokers", []string{})
	v.SetDefault("input.kafka.topic", "")
	v.SetDefault("input.kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("metrics.listenAddress", "")
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnable)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

// bindFlags maps every registered command-line flag onto its configuration key.
// Flags the user did not set keep the lower-priority file, env or default value.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBindingFlag, name, err)
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	d := cfg.Display
	if d.NumRecords < 1 {
		return ErrInvalidNumRecords
	}
	if d.MinBucket < AutotuneMinBucket || d.MaxBucket > AutotuneMaxBucket {
		return ErrInvalidBucketRange
	}
	if !d.AutotuneMin() && !d.AutotuneMax() && d.MinBucket > d.MaxBucket {
		return ErrInvalidBucketRange
	}
	if d.ScreenDelay < 0 {
		return ErrInvalidScreenDelay
	}
	if d.DebugLevel < 0 {
		return ErrInvalidDebugLevel
	}
	switch d.LatencyUnit {
	case "millisec", "microsec", "nanosec":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLatencyUnit, d.LatencyUnit)
	}
	switch d.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, d.Color)
	}
	if !d.FrequencyMap && !d.IntensityMap {
		return ErrNoMapsEnabled
	}

	switch cfg.Input.Source {
	case "stdin":
	case "file":
		if cfg.Input.Path == "" {
			return ErrEmptyInputPath
		}
	case "kafka":
		k := cfg.Input.Kafka
		if len(k.Brokers) == 0 {
			return ErrEmptyKafkaBrokers
		}
		if k.Topic == "" {
			return ErrEmptyKafkaTopic
		}
		if k.GroupID == "" {
			return ErrEmptyKafkaGroupID
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidInputSource, cfg.Input.Source)
	}
	return nil
}
