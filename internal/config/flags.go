package config

import "github.com/spf13/pflag"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"num_records":      "display.num_records",
	"min_bucket":       "display.min_bucket",
	"max_bucket":       "display.max_bucket",
	"frequency_maxval": "display.frequency_maxval",
	"intensity_maxval": "display.intensity_maxval",
	"screen_delay":     "display.screen_delay",
	"debug_level":      "display.debug_level",
	"latency_unit":     "display.latency_unit",
	"legend":           "display.print_legend",
	"frequency_map":    "display.frequency_map",
	"intensity_map":    "display.intensity_map",
	"color":            "display.color",
	"input":            "input.source",
	"input_path":       "input.path",
	"kafka_brokers":    "input.kafka.brokers",
	"kafka_topic":      "input.kafka.topic",
	"kafka_group_id":   "input.kafka.groupID",
	"metrics_address":  "metrics.listenAddress",
	"log_level":        "log.level",
}

// RegisterFlags declares the command-line surface on fs. Values are picked up by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP("num_records", "n", defaultNumRecords, "Number of time intervals displayed (window width).")
	fs.Int("min_bucket", AutotuneMinBucket, "Lower bucket exponent (log2). -1 = autotune.")
	fs.Int("max_bucket", AutotuneMaxBucket, "Upper bucket exponent (log2). 64 = autotune.")
	fs.Float64("frequency_maxval", AutoMaxVal, "Max color scale for the frequency map; -1 = auto.")
	fs.Float64("intensity_maxval", AutoMaxVal, "Max color scale for the intensity map; -1 = auto.")
	fs.Float64("screen_delay", defaultScreenDelay, "Delay between frames in seconds.")
	fs.Int("debug_level", defaultDebugLevel, "Verbosity 0..5.")
	fs.String("latency_unit", defaultLatencyUnit, "Latency unit assumed until a record declares one (millisec, microsec, nanosec).")
	fs.Bool("legend", true, "Print the color legend next to each map.")
	fs.Bool("frequency_map", true, "Render the frequency heat map.")
	fs.Bool("intensity_map", true, "Render the intensity heat map.")
	fs.String("color", defaultColorMode, "Color output: auto, always, never.")
	fs.String("input", defaultInputSource, "Input source: stdin, file, kafka.")
	fs.String("input_path", "", "Path of the trace file when --input=file.")
	fs.StringSlice("kafka_brokers", nil, "Kafka brokers when --input=kafka.")
	fs.String("kafka_topic", "", "Kafka topic when --input=kafka.")
	fs.String("kafka_group_id", defaultKafkaGroupID, "Kafka consumer group when --input=kafka.")
	fs.String("metrics_address", "", "Serve Prometheus metrics on this address (empty disables).")
	fs.String("log_level", defaultLogLevel, "Log level for stderr/file logging.")
}
