package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileConfig configures a FileSource.
type FileConfig struct {
	Dir       string `json:"dir"`
	Extension string `json:"extension"`
}

// FileSource reads modules from a directory.
type FileSource struct {
	dir string
	ext string
}

// NewFileSource checks that cfg.Dir is a directory.
func NewFileSource(cfg FileConfig) (*FileSource, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.Dir)
	}
	return &FileSource{dir: cfg.Dir, ext: cfg.Extension}, nil
}

func (s *FileSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Clean(id + s.ext)
	if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("module id %q escapes %s", id, s.dir)
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}
