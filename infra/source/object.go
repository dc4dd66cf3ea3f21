package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig configures an ObjectSource.
type ObjectConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Extension string `json:"extension"`
}

// objectGetter is the subset of the MinIO client used by ObjectSource.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, name string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

type minioGetter struct {
	*minio.Client
}

func (g minioGetter) GetObject(ctx context.Context, bucket, name string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return g.Client.GetObject(ctx, bucket, name, opts)
}

// ObjectSource reads modules from an S3-compatible bucket.
type ObjectSource struct {
	client objectGetter
	cfg    ObjectConfig
}

// NewObjectSource creates a MinIO client for cfg. The client connects lazily.
func NewObjectSource(cfg ObjectConfig) (*ObjectSource, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object source requires a bucket")
	}
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &ObjectSource{client: minioGetter{cli}, cfg: cfg}, nil
}

// ObjectName returns the key fetched for id.
func (s *ObjectSource) ObjectName(id string) string {
	return s.cfg.Prefix + id + s.cfg.Extension
}

func (s *ObjectSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	name := s.ObjectName(id)
	r, err := s.client.GetObject(ctx, s.cfg.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.cfg.Bucket, name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.cfg.Bucket, name, err)
	}
	return data, nil
}
