package storage

import (
	"context"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// GCS stores audio artifacts as objects in a Cloud Storage bucket. The
// reference returned by Put is the gs:// URI.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSOption is a functional option for GCS store configuration
type GCSOption func(*GCS)

// WithPrefix puts all objects under the given key prefix
func WithPrefix(prefix string) GCSOption {
	return func(s *GCS) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewGCS creates a Cloud Storage backed store. Credentials are resolved
// from the environment.
func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	s := &GCS{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put uploads the artifact and returns its gs:// URI
func (s *GCS) Put(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", goerr.New("artifact name is required")
	}

	object := name
	if s.prefix != "" {
		object = path.Join(s.prefix, name)
	}

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	if ct := contentTypeFor(object); ct != "" {
		w.ContentType = ct
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", s.bucket), goerr.V("object", object))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close object writer",
			goerr.V("bucket", s.bucket), goerr.V("object", object))
	}

	return "gs://" + s.bucket + "/" + object, nil
}

// Close releases the underlying API connection
func (s *GCS) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(key, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return ""
	}
}
