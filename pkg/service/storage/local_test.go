package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/chiron-lab/chiron/pkg/service/storage"
)

func TestLocal(t *testing.T) {
	t.Run("writes artifact and returns its path", func(t *testing.T) {
		dir := t.TempDir()
		store, err := storage.NewLocal(dir)
		gt.NoError(t, err).Required()

		ref, err := store.Put(context.Background(), "answer.wav", []byte("RIFF-data"))
		gt.NoError(t, err).Required()
		gt.Value(t, ref).Equal(filepath.Join(dir, "answer.wav"))

		data, err := os.ReadFile(ref)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("RIFF-data")
	})

	t.Run("creates nested directories from the name", func(t *testing.T) {
		dir := t.TempDir()
		store, err := storage.NewLocal(dir)
		gt.NoError(t, err).Required()

		ref, err := store.Put(context.Background(), "sess-1/0001-answer.wav", []byte("audio"))
		gt.NoError(t, err).Required()

		data, err := os.ReadFile(ref)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("audio")
	})

	t.Run("creates the storage directory on construction", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "artifacts")
		_, err := storage.NewLocal(dir)
		gt.NoError(t, err).Required()

		info, err := os.Stat(dir)
		gt.NoError(t, err).Required()
		gt.Bool(t, info.IsDir()).True()
	})

	t.Run("rejects names escaping the directory", func(t *testing.T) {
		store, err := storage.NewLocal(t.TempDir())
		gt.NoError(t, err).Required()

		_, err = store.Put(context.Background(), "../outside.wav", []byte("x"))
		gt.Error(t, err)
	})

	t.Run("rejects empty name and empty directory", func(t *testing.T) {
		store, err := storage.NewLocal(t.TempDir())
		gt.NoError(t, err).Required()

		_, err = store.Put(context.Background(), "", []byte("x"))
		gt.Error(t, err)

		_, err = storage.NewLocal("")
		gt.Error(t, err)
	})
}

func TestGCS(t *testing.T) {
	bucket, ok := os.LookupEnv("TEST_GCS_BUCKET")
	if !ok {
		t.Skip("TEST_GCS_BUCKET is not set")
	}

	ctx := context.Background()
	store, err := storage.NewGCS(ctx, bucket, storage.WithPrefix("chiron-test"))
	gt.NoError(t, err).Required()
	defer store.Close()

	ref, err := store.Put(ctx, "probe.wav", []byte("RIFF-probe"))
	gt.NoError(t, err).Required()
	gt.String(t, ref).Contains("gs://" + bucket + "/chiron-test/probe.wav")
}
