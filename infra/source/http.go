package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	BaseURL   string            `json:"base_url"`
	Extension string            `json:"extension"`
	Headers   map[string]string `json:"headers"`
	Timeout   time.Duration     `json:"timeout"`
	// MaxBytes caps the response size. Zero means 32 MiB.
	MaxBytes int64 `json:"max_bytes"`
}

// HTTPSource fetches modules from a web server.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPSource validates cfg and returns a source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base_url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 << 20
	}
	return &HTTPSource{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	u := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + url.PathEscape(id) + s.cfg.Extension
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, fmt.Errorf("fetch %s: module larger than %d bytes", u, s.cfg.MaxBytes)
	}
	return data, nil
}
