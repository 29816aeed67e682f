package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/chiron-lab/chiron/pkg/cli/config"
)

func TestStorage_Configure(t *testing.T) {
	t.Run("none disables audio storage", func(t *testing.T) {
		cfg := config.NewStorageForTest("none", "", "")
		store, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, store).Nil()
	})

	t.Run("local backend creates the directory", func(t *testing.T) {
		cfg := config.NewStorageForTest("local", t.TempDir(), "")
		store, err := cfg.Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, store).NotNil()
	})

	t.Run("gcs backend requires a bucket", func(t *testing.T) {
		cfg := config.NewStorageForTest("gcs", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Value(t, err).NotNil()
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := config.NewStorageForTest("tape", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Value(t, err).NotNil()
	})
}
