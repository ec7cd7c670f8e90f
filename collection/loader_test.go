package collection

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/storage"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

const quakes = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]},
     "properties": {"name": "A", "start": 0, "end": 10}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [3, 4]},
     "properties": {"name": "B", "start": "2020-01-01", "end": "2020-01-02T00:00:00Z"}}
  ]
}`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Write(ctx, "quakes.geojson", []byte(quakes)))

	l := NewLoader(store, time.Minute)
	fc, err := l.Load(ctx, "quakes.geojson")
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	require.Equal(t, "A", fc.Features[0].Properties["name"])
	require.Equal(t, 10.0, fc.Features[0].Properties["end"])

	again, err := l.Load(ctx, "quakes.geojson")
	require.NoError(t, err)
	require.Same(t, fc, again)
	require.Equal(t, int64(1), l.Stats().Hits.Load())
	require.Equal(t, int64(1), l.Stats().Misses.Load())
	require.Equal(t, "CacheStats(Hits: 1, Misses: 1)", l.Stats().String())

	l.Clear()
	require.Equal(t, int64(0), l.Stats().Hits.Load())
	fresh, err := l.Load(ctx, "quakes.geojson")
	require.NoError(t, err)
	require.NotSame(t, fc, fresh)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	l := NewLoader(store, 0)

	_, err := l.Load(ctx, "missing")
	require.True(t, errors.Is(err, storage.ErrDoesNotExist))

	require.NoError(t, store.Write(ctx, "junk", []byte("not json")))
	_, err = l.Load(ctx, "junk")
	require.True(t, errors.Is(err, ErrNotFeatureCollection))

	require.NoError(t, store.Write(ctx, "point", []byte(`{"type": "Point", "coordinates": [1, 2]}`)))
	_, err = l.Load(ctx, "point")
	require.True(t, errors.Is(err, ErrNotFeatureCollection))
}

func TestDecodeSingleFeature(t *testing.T) {
	fc, err := Decode([]byte(`{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}, "properties": {"start": 1, "end": 2}}`))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	require.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	store := storage.NewDiskStorage(t.TempDir())
	l := NewLoader(store, time.Minute)

	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{5, 6})
	f.Properties["start"] = 1.0
	f.Properties["end"] = 2.0
	fc.Append(f)
	require.NoError(t, l.Save(ctx, "layers/one.geojson", fc))

	first, err := l.Load(ctx, "layers/one.geojson")
	require.NoError(t, err)
	require.Len(t, first.Features, 1)

	fc.Append(geojson.NewFeature(orb.Point{7, 8}))
	require.NoError(t, l.Save(ctx, "layers/one.geojson", fc))

	second, err := l.Load(ctx, "layers/one.geojson")
	require.NoError(t, err)
	require.Len(t, second.Features, 2)
}
