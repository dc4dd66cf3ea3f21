// Package source is the "import by identifier" boundary: it turns a feature's
// configured source into a feature.Loader.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kilianp07/lazyload/core/factory"
	"github.com/kilianp07/lazyload/core/feature"
)

// Source fetches the raw module identified by id.
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// Artifact is the module value produced by source-backed loaders.
type Artifact struct {
	Feature   string    `json:"feature"`
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Size      int       `json:"size"`
	Digest    string    `json:"digest"`
	FetchedAt time.Time `json:"fetched_at"`
	Data      []byte    `json:"-"`
}

func (a *Artifact) String() string {
	return fmt.Sprintf("%s(%s:%s, %d bytes)", a.Feature, a.Source, a.ID, a.Size)
}

var registry = factory.NewRegistry[Source]()

// Register adds a source factory identified by name.
func Register(name string, f factory.Factory[Source]) error {
	return registry.Register(name, f)
}

// Types lists the registered source types.
func Types() []string { return registry.Types() }

// New creates a Source from its configuration.
func New(cfg factory.ModuleConfig) (Source, error) {
	return registry.Create(cfg)
}

// Loader builds the loader for name from cfg. The fetched id is cfg.Conf["id"]
// when set, the feature name otherwise.
func Loader(name string, cfg factory.ModuleConfig) (feature.Loader, error) {
	src, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("feature %q: %w", name, err)
	}
	id := name
	if v, ok := cfg.Conf["id"].(string); ok && v != "" {
		id = v
	}
	return FromSource(name, id, cfg.Type, src), nil
}

// FromSource wraps src in a loader producing *Artifact values.
func FromSource(name, id, kind string, src Source) feature.Loader {
	return func(ctx context.Context) (feature.Module, error) {
		data, err := src.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(data)
		return &Artifact{
			Feature:   name,
			ID:        id,
			Source:    kind,
			Size:      len(data),
			Digest:    hex.EncodeToString(sum[:]),
			FetchedAt: time.Now(),
			Data:      data,
		}, nil
	}
}
