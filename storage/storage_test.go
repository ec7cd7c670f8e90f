package storage

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) []struct {
	name    string
	storage System
} {
	tests := []struct {
		name    string
		storage System
	}{
		{
			name:    "memory",
			storage: NewMemoryStorage(),
		},
		{
			name:    "disk",
			storage: NewDiskStorage(t.TempDir()),
		},
	}

	// S3 runs against LocalStack when an endpoint is given
	if endpoint := os.Getenv("TIMESLIDER_S3_ENDPOINT"); endpoint != "" {
		s, err := Open(context.Background(), Options{
			Source:    "s3",
			Bucket:    "test",
			URI:       "timeslider/",
			Region:    "us-east-1",
			Endpoint:  endpoint,
			AccessKey: "test",
			SecretKey: "test",
		})
		require.NoError(t, err)
		tests = append(tests, struct {
			name    string
			storage System
		}{name: "s3", storage: s})
	}
	return tests
}

func TestStreamWrite(t *testing.T) {
	for _, tt := range backends(t) {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			key := "events/test_stream"

			stream, err := tt.storage.BeginStream(ctx, key)
			require.NoError(t, err)
			require.NotNil(t, stream)

			n, err := stream.Write([]byte("hello "))
			require.NoError(t, err)
			require.Equal(t, 6, n)
			_, err = stream.Write([]byte("world"))
			require.NoError(t, err)

			require.NoError(t, stream.Close())

			readData, err := tt.storage.Read(ctx, key)
			require.NoError(t, err)
			require.Equal(t, []byte("hello world"), readData)
		})
	}
}

func TestReadWriteDelete(t *testing.T) {
	for _, tt := range backends(t) {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			_, err := tt.storage.Read(ctx, "collections/missing.geojson")
			require.True(t, errors.Is(err, ErrDoesNotExist), "got %v", err)

			require.NoError(t, tt.storage.Write(ctx, "collections/a.geojson", []byte("a")))
			require.NoError(t, tt.storage.Write(ctx, "collections/b.geojson", []byte("b")))
			require.NoError(t, tt.storage.Write(ctx, "other/c.geojson", []byte("c")))

			keys, err := tt.storage.GetKeysWithPrefix(ctx, "collections/")
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"collections/a.geojson", "collections/b.geojson"}, keys)

			data, err := tt.storage.Read(ctx, "collections/a.geojson")
			require.NoError(t, err)
			require.Equal(t, []byte("a"), data)

			require.NoError(t, tt.storage.Delete(ctx, "collections/a.geojson"))
			require.NoError(t, tt.storage.Delete(ctx, "collections/a.geojson"))
			_, err = tt.storage.Read(ctx, "collections/a.geojson")
			require.True(t, errors.Is(err, ErrDoesNotExist))
		})
	}
}

func TestDiskListMissingDir(t *testing.T) {
	s := NewDiskStorage(t.TempDir() + "/nope")
	keys, err := s.GetKeysWithPrefix(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Source: "memory"})
	require.NoError(t, err)
	require.NotNil(t, s)

	s, err = Open(ctx, Options{Source: "disk", URI: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = Open(ctx, Options{Source: "tape"})
	require.Error(t, err)

	_, err = Open(ctx, Options{Source: "s3", Region: "us-east-1", AccessKey: "x", SecretKey: "y"})
	require.Error(t, err)
}
