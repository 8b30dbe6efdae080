package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)

	d := cfg.Display
	assert.Equal(t, 90, d.NumRecords)
	assert.True(t, d.AutotuneMin())
	assert.True(t, d.AutotuneMax())
	assert.Equal(t, AutoMaxVal, d.FrequencyMaxVal)
	assert.Equal(t, AutoMaxVal, d.IntensityMaxVal)
	assert.Equal(t, "millisec", d.LatencyUnit)
	assert.Equal(t, 100*time.Millisecond, d.Delay())
	assert.Zero(t, d.DebugLevel)
	assert.True(t, d.PrintLegend)
	assert.True(t, d.FrequencyMap)
	assert.True(t, d.IntensityMap)
	assert.Equal(t, "auto", d.Color)

	assert.Equal(t, "stdin", cfg.Input.Source)
	assert.Equal(t, "latencymap-default-group", cfg.Input.Kafka.GroupID)
	assert.Empty(t, cfg.Metrics.ListenAddress)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.FileLoggingEnabled)
}

func TestLoad_NilFlags(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Display.NumRecords)
}

func TestLoad_FlagsOverride(t *testing.T) {
	fs := newFlags(t,
		"-n", "40",
		"--min_bucket=3",
		"--max_bucket=9",
		"--frequency_maxval=250",
		"--screen_delay=1.5",
		"--debug_level=2",
		"--latency_unit=MicroSec",
		"--legend=false",
		"--color=never",
		"--input=kafka",
		"--kafka_brokers=a:9092,b:9092",
		"--kafka_topic=latency",
	)
	cfg, err := Load("", fs)
	require.NoError(t, err)

	d := cfg.Display
	assert.Equal(t, 40, d.NumRecords)
	assert.Equal(t, 3, d.MinBucket)
	assert.Equal(t, 9, d.MaxBucket)
	assert.False(t, d.AutotuneMin())
	assert.Equal(t, 250.0, d.FrequencyMaxVal)
	assert.Equal(t, 1500*time.Millisecond, d.Delay())
	assert.Equal(t, 2, d.DebugLevel)
	assert.Equal(t, "microsec", d.LatencyUnit)
	assert.False(t, d.PrintLegend)
	assert.Equal(t, "never", d.Color)
	assert.Equal(t, "kafka", cfg.Input.Source)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Input.Kafka.Brokers)
	assert.Equal(t, "latency", cfg.Input.Kafka.Topic)
}

func TestLoad_FileThenFlags(t *testing.T) {
	path := writeConfig(t, "latencymap.yaml", `
display:
  num_records: 120
  intensity_maxval: 5000
  latency_unit: nanosec
  intensity_map: false
input:
  source: file
  path: /tmp/trace.txt
metrics:
  listenAddress: ":9100"
log:
  level: info
`)
	cfg, err := Load(path, newFlags(t, "--num_records=30"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Display.NumRecords, "explicit flag wins over the file")
	assert.Equal(t, 5000.0, cfg.Display.IntensityMaxVal)
	assert.Equal(t, "nanosec", cfg.Display.LatencyUnit)
	assert.False(t, cfg.Display.IntensityMap)
	assert.True(t, cfg.Display.FrequencyMap)
	assert.Equal(t, "file", cfg.Input.Source)
	assert.Equal(t, "/tmp/trace.txt", cfg.Input.Path)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddress)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LATENCYMAP_DISPLAY_NUM_RECORDS", "12")
	t.Setenv("LATENCYMAP_DISPLAY_COLOR", "always")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Display.NumRecords)
	assert.Equal(t, "always", cfg.Display.Color)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestLoad_UnreadableFile(t *testing.T) {
	path := writeConfig(t, "broken.yaml", "display: [unterminated\n")
	_, err := Load(path, nil)
	assert.ErrorIs(t, err, ErrReadingConfigFile)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"zero records", []string{"--num_records=0"}, ErrInvalidNumRecords},
		{"min below autotune", []string{"--min_bucket=-2"}, ErrInvalidBucketRange},
		{"max above autotune", []string{"--max_bucket=65"}, ErrInvalidBucketRange},
		{"inverted range", []string{"--min_bucket=10", "--max_bucket=4"}, ErrInvalidBucketRange},
		{"negative delay", []string{"--screen_delay=-1"}, ErrInvalidScreenDelay},
		{"negative debug", []string{"--debug_level=-1"}, ErrInvalidDebugLevel},
		{"unit", []string{"--latency_unit=seconds"}, ErrInvalidLatencyUnit},
		{"color", []string{"--color=sometimes"}, ErrInvalidColorMode},
		{"no maps", []string{"--frequency_map=false", "--intensity_map=false"}, ErrNoMapsEnabled},
		{"source", []string{"--input=socket"}, ErrInvalidInputSource},
		{"file without path", []string{"--input=file"}, ErrEmptyInputPath},
		{"kafka without brokers", []string{"--input=kafka", "--kafka_topic=t"}, ErrEmptyKafkaBrokers},
		{"kafka without topic", []string{"--input=kafka", "--kafka_brokers=b:9092"}, ErrEmptyKafkaTopic},
		{"kafka without group", []string{"--input=kafka", "--kafka_brokers=b:9092", "--kafka_topic=t", "--kafka_group_id="}, ErrEmptyKafkaGroupID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", newFlags(t, tt.args...))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_AutotuneOnlyOneEdge(t *testing.T) {
	cfg, err := Load("", newFlags(t, "--min_bucket=20"))
	require.NoError(t, err)
	assert.False(t, cfg.Display.AutotuneMin())
	assert.True(t, cfg.Display.AutotuneMax())
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "latencymap.example.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Display.NumRecords)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Input.Kafka.Brokers)
	assert.Equal(t, "stdin", cfg.Input.Source)
}
