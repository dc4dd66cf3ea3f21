package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/lazyload/core/factory"
	"github.com/kilianp07/lazyload/core/feature"
	"github.com/kilianp07/lazyload/core/prediction"
	"github.com/kilianp07/lazyload/core/source"
)

// FeatureConfig declares one feature and where its module comes from.
type FeatureConfig struct {
	Name      string               `json:"name"`
	Source    factory.ModuleConfig `json:"source"`
	DependsOn []string             `json:"depends_on"`
	// Fallback, when set, is served by lazy handles if the load fails.
	Fallback any `json:"fallback"`
}

// Validate checks mandatory fields.
func (f FeatureConfig) Validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Source.Type == "" {
		return fmt.Errorf("feature %q: source.type is required", f.Name)
	}
	return nil
}

// Descriptor builds the registry descriptor. Source types must have been
// registered, usually by importing infra/source.
func (f FeatureConfig) Descriptor() (feature.Descriptor, error) {
	load, err := source.Loader(f.Name, f.Source)
	if err != nil {
		return feature.Descriptor{}, err
	}
	d := feature.Descriptor{Name: f.Name, Load: load, DependsOn: f.DependsOn}
	if f.Fallback != nil {
		d = d.WithFallback(f.Fallback)
	}
	return d, nil
}

// Descriptors builds every configured feature.
func (c *Config) Descriptors() ([]feature.Descriptor, error) {
	out := make([]feature.Descriptor, 0, len(c.Features))
	for _, f := range c.Features {
		d, err := f.Descriptor()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// PredictionTable merges predictions_file with the inline predictions. Inline
// entries replace file entries for the same route.
func (c *Config) PredictionTable() (*prediction.Table, error) {
	merged := make(map[string][]string)
	if c.PredictionsFile != "" {
		t, err := prediction.LoadTable(c.PredictionsFile)
		if err != nil {
			return nil, fmt.Errorf("predictions_file: %w", err)
		}
		for _, route := range t.Routes() {
			merged[route] = t.Predict(route)
		}
	}
	for route, names := range c.Predictions {
		merged[route] = names
	}
	return prediction.NewTable(merged), nil
}
