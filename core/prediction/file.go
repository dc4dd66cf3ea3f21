package prediction

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a route table from a JSON or YAML file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "json":
	default:
		return nil, fmt.Errorf("unsupported prediction table format: %s", filepath.Ext(path))
	}
	return DecodeTable(f, ext)
}

// DecodeTable reads a route table in the given format ("json", "yaml" or "yml").
func DecodeTable(r io.Reader, format string) (*Table, error) {
	var m map[string][]string
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return NewTable(m), nil
}
