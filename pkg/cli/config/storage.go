package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
	"github.com/chiron-lab/chiron/pkg/service/storage"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Storage holds CLI flags for synthesized audio storage
type Storage struct {
	backend string
	dir     string
	bucket  string
	prefix  string
}

// Flags returns CLI flags for audio storage configuration
func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Audio storage backend (none, local or gcs)",
			Value:       "none",
			Sources:     cli.EnvVars("CHIRON_STORAGE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Directory for local audio storage",
			Value:       "./audio",
			Sources:     cli.EnvVars("CHIRON_STORAGE_DIR"),
			Destination: &s.dir,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "GCS bucket for audio storage (required when using gcs backend)",
			Sources:     cli.EnvVars("CHIRON_STORAGE_BUCKET"),
			Destination: &s.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix within the GCS bucket",
			Sources:     cli.EnvVars("CHIRON_STORAGE_PREFIX"),
			Destination: &s.prefix,
		},
	}
}

// LogAttrs returns log attributes for the storage configuration
func (s *Storage) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("backend", s.backend),
		slog.String("dir", s.dir),
		slog.String("bucket", s.bucket),
	}
}

// Configure initializes the audio store based on the configured backend.
// Returns nil for the none backend (synthesized audio is sent inline only).
func (s *Storage) Configure(ctx context.Context) (interfaces.AudioStore, error) {
	switch s.backend {
	case "none":
		return nil, nil

	case "local":
		store, err := storage.NewLocal(s.dir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize local audio storage")
		}
		logging.Default().Info("Using local audio storage", "dir", s.dir)
		return store, nil

	case "gcs":
		if s.bucket == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "storage-bucket is required when using gcs backend")
		}
		store, err := storage.NewGCS(ctx, s.bucket, storage.WithPrefix(s.prefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize GCS audio storage")
		}
		logging.Default().Info("Using GCS audio storage", "bucket", s.bucket, "prefix", s.prefix)
		return store, nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid storage backend", goerr.V("backend", s.backend))
	}
}
