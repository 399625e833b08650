// Package config provides configuration loading for callscope.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/callscope/callscope/internal/profiler"
	"github.com/callscope/callscope/internal/safe"
)

// Default configuration values.
const (
	DefaultSamplingRate    = 1.0
	DefaultMonitorInterval = 1.0 // seconds
	DefaultMonitorTopN     = 5
	DefaultReportTopN      = 10
	DefaultReportSort      = "total"
	DefaultLogLevel        = "info"
)

// Config is the full configuration surface, loadable from a YAML file.
// Every field is optional; zero values are replaced with defaults.
type Config struct {
	Profiler ProfilerConfig `yaml:"profiler"`
	Logging  LoggingConfig  `yaml:"logging"`
	Report   ReportConfig   `yaml:"report"`
}

// ProfilerConfig configures the profiling engine.
type ProfilerConfig struct {
	// SamplingRate in [0, 1]; out-of-range values are clamped, not
	// rejected. Default 1.0.
	SamplingRate *float64 `yaml:"sampling_rate"`
	// AdaptiveSampling enables the per-function rate feedback loop.
	AdaptiveSampling bool `yaml:"adaptive_sampling"`
	// RealTimeMonitoring enables the periodic top-N log emitter.
	RealTimeMonitoring bool `yaml:"real_time_monitoring"`
	// MonitorInterval is the emit period in seconds. Default 1.0.
	MonitorInterval float64 `yaml:"monitor_interval"`
	// MonitorTopN is how many functions each emit covers. Default 5.
	MonitorTopN int `yaml:"monitor_top_n"`
	// ExcludedNamespaces lists function-name prefixes that are never
	// measured (the profiler's own packages, runtime bootstrap code).
	ExcludedNamespaces []string `yaml:"excluded_namespaces"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty *bool  `yaml:"pretty"`
}

// ReportConfig configures report rendering defaults.
type ReportConfig struct {
	// TopN limits rendered functions. Default 10.
	TopN int `yaml:"top_n"`
	// SortBy is one of total, own, calls, name. Default total.
	SortBy string `yaml:"sort_by"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	rate := DefaultSamplingRate
	pretty := true
	return &Config{
		Profiler: ProfilerConfig{
			SamplingRate:    &rate,
			MonitorInterval: DefaultMonitorInterval,
			MonitorTopN:     DefaultMonitorTopN,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Pretty: &pretty,
		},
		Report: ReportConfig{
			TopN:   DefaultReportTopN,
			SortBy: DefaultReportSort,
		},
	}
}

// Load reads a YAML configuration file and fills unset fields with
// defaults. A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := safe.ReadFile(path, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Profiler.SamplingRate == nil {
		rate := DefaultSamplingRate
		c.Profiler.SamplingRate = &rate
	}
	if c.Profiler.MonitorInterval <= 0 {
		c.Profiler.MonitorInterval = DefaultMonitorInterval
	}
	if c.Profiler.MonitorTopN <= 0 {
		c.Profiler.MonitorTopN = DefaultMonitorTopN
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Pretty == nil {
		pretty := true
		c.Logging.Pretty = &pretty
	}
	if c.Report.TopN <= 0 {
		c.Report.TopN = DefaultReportTopN
	}
	if c.Report.SortBy == "" {
		c.Report.SortBy = DefaultReportSort
	}
}

// Engine converts the file-level profiler settings into the engine's
// Config. Rate clamping happens inside the engine.
func (c *Config) Engine() profiler.Config {
	return profiler.Config{
		SamplingRate:       *c.Profiler.SamplingRate,
		AdaptiveSampling:   c.Profiler.AdaptiveSampling,
		RealTimeMonitoring: c.Profiler.RealTimeMonitoring,
		MonitorInterval:    time.Duration(c.Profiler.MonitorInterval * float64(time.Second)),
		MonitorTopN:        c.Profiler.MonitorTopN,
		ExcludedPrefixes:   c.Profiler.ExcludedNamespaces,
	}
}
