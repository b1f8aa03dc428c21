// Package bench implements the workload harness for the FIFO file cache: a
// keyed shadow index over the keyless core, one paced writer, Zipf-distributed
// readers, a CSV operation trace, and a sqlite sink for run summaries.
package bench

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can say "3ms" or "1.5s".
// Bare integers are accepted as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("bench: bad duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bench: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config describes one workload run. Fields absent from a YAML file keep the
// defaults from DefaultConfig when loaded through LoadConfig; fields set
// explicitly to zero stay zero.
type Config struct {
	// Cache geometry.
	CachePath string `yaml:"cache_path"`
	PageSize  int    `yaml:"page_size"`
	Capacity  int    `yaml:"capacity"`

	// Workload shape.
	Keys           int      `yaml:"keys"`             // key space size
	Readers        int      `yaml:"readers"`          // reader goroutines
	Writes         int      `yaml:"writes"`           // total writes
	ReadsPerReader int      `yaml:"reads_per_reader"` // reads per goroutine
	WritePause     Duration `yaml:"write_pause"`      // sleep between writes
	ReadPause      Duration `yaml:"read_pause"`       // sleep between reads

	// Zipf parameters for reader key selection (s > 1, v >= 1).
	ZipfS float64 `yaml:"zipf_s"`
	ZipfV float64 `yaml:"zipf_v"`

	Seed int64 `yaml:"seed"` // 0 = time-derived

	// Output sinks; empty disables the sink.
	TracePath string `yaml:"trace_path"`
	ResultsDB string `yaml:"results_db"`
}

// DefaultConfig mirrors the original harness: a 4 KiB-paged, ten-page cache
// under a 1000-key space, ten readers, and millisecond pacing.
func DefaultConfig() Config {
	return Config{
		PageSize:       4096,
		Capacity:       4096 * 10,
		Keys:           1000,
		Readers:        10,
		Writes:         10_000,
		ReadsPerReader: 2_000,
		WritePause:     Duration(3 * time.Millisecond),
		ReadPause:      Duration(1 * time.Millisecond),
		ZipfS:          1.1,
		ZipfV:          1,
		TracePath:      "trace.csv",
	}
}

// LoadConfig reads a YAML config file and fills unset fields from
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("bench: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("bench: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parameters the cache constructor and the Zipf generator
// would reject anyway, but with friendlier messages.
func (c Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("bench: page_size must be >= 1, got %d", c.PageSize)
	}
	if c.Capacity <= 0 || c.Capacity%c.PageSize != 0 || c.Capacity/c.PageSize < 2 {
		return fmt.Errorf("bench: capacity %d must be a multiple of page_size %d with at least 2 pages", c.Capacity, c.PageSize)
	}
	if c.Keys < 1 {
		return fmt.Errorf("bench: keys must be >= 1, got %d", c.Keys)
	}
	if c.Readers < 0 {
		return fmt.Errorf("bench: readers must be >= 0, got %d", c.Readers)
	}
	if c.ZipfS <= 1 || c.ZipfV < 1 {
		return fmt.Errorf("bench: zipf parameters need s > 1 and v >= 1, got s=%v v=%v", c.ZipfS, c.ZipfV)
	}
	return nil
}
