package source

import (
	"context"
	"fmt"
)

// StaticConfig configures a StaticSource. Data is returned for ids missing
// from Values.
type StaticConfig struct {
	Data   string            `json:"data"`
	Values map[string]string `json:"values"`
}

// StaticSource serves payloads from configuration.
type StaticSource struct {
	cfg StaticConfig
}

func NewStaticSource(cfg StaticConfig) *StaticSource { return &StaticSource{cfg: cfg} }

func (s *StaticSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := s.cfg.Values[id]; ok {
		return []byte(v), nil
	}
	if s.cfg.Data != "" {
		return []byte(s.cfg.Data), nil
	}
	return nil, fmt.Errorf("static source has no payload for %q", id)
}
