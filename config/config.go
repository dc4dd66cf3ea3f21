package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/lazyload/core/metrics"
	"github.com/kilianp07/lazyload/infra/journal"
	"github.com/kilianp07/lazyload/infra/monitoring"
	"github.com/kilianp07/lazyload/infra/mqtt"
	"github.com/kilianp07/lazyload/infra/tracing"
)

type Config struct {
	Features        []FeatureConfig     `json:"features"`
	Predictions     map[string][]string `json:"predictions"`
	PredictionsFile string              `json:"predictions_file"`
	Scheduler       SchedulerConfig     `json:"scheduler"`
	HTTP            HTTPConfig          `json:"http"`
	MQTT            mqtt.Config         `json:"mqtt"`
	Metrics         metrics.Config      `json:"metrics"`
	Journal         journal.Config      `json:"journal"`
	Sentry          monitoring.Config   `json:"sentry"`
	Tracing         tracing.Config      `json:"tracing"`
}

// Load reads a YAML or JSON file, applies K_ environment overrides (a double
// underscore separates nested keys, K_SCHEDULER__IDLE=delay), fills defaults
// and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.PredictionsFile != "" && !filepath.IsAbs(cfg.PredictionsFile) {
		cfg.PredictionsFile = filepath.Join(filepath.Dir(path), cfg.PredictionsFile)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.HTTP.SetDefaults()
	if c.Journal.Path != "" {
		c.Journal.SetDefaults()
	}
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
}

// Validate rejects configurations that would otherwise fail at runtime:
// duplicate or unnamed features, unknown dependencies and predictions naming
// features that are not declared.
func (c *Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	known := make(map[string]bool, len(c.Features))
	for i, f := range c.Features {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("features[%d]: %w", i, err)
		}
		if known[f.Name] {
			return fmt.Errorf("features[%d]: duplicate feature %q", i, f.Name)
		}
		known[f.Name] = true
	}
	for _, f := range c.Features {
		for _, dep := range f.DependsOn {
			if !known[dep] {
				return fmt.Errorf("feature %q depends on unknown feature %q", f.Name, dep)
			}
		}
	}
	table, err := c.PredictionTable()
	if err != nil {
		return err
	}
	for _, route := range table.Routes() {
		for _, name := range table.Predict(route) {
			if !known[name] {
				return fmt.Errorf("route %q predicts unknown feature %q", route, name)
			}
		}
	}
	return nil
}
