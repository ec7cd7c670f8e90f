package collection

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/storage"
	"github.com/paulmach/orb/geojson"
	"github.com/patrickmn/go-cache"
)

// ErrNotFeatureCollection is returned when a stored value can not be
// decoded as a GeoJSON FeatureCollection.
var ErrNotFeatureCollection = errors.New("not a feature collection")

// DefaultTTL is how long a decoded collection stays cached.
const DefaultTTL = 5 * time.Minute

type CacheStats struct {
	Hits   atomic.Int64
	Misses atomic.Int64
}

func (c *CacheStats) Hit() {
	c.Hits.Add(1)
}
func (c *CacheStats) Miss() {
	c.Misses.Add(1)
}
func (c *CacheStats) Reset() {
	c.Hits.Store(0)
	c.Misses.Store(0)
}
func (c *CacheStats) String() string {
	return fmt.Sprintf("CacheStats(Hits: %d, Misses: %d)", c.Hits.Load(), c.Misses.Load())
}

// Loader reads feature collections out of a storage.System. Decoded
// collections are shared between callers, so two loads of the same key
// hand back the same feature pointers.
type Loader struct {
	store storage.System
	ttl   time.Duration
	cache *cache.Cache
	stats CacheStats
}

func NewLoader(store storage.System, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Loader{
		store: store,
		ttl:   ttl,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (l *Loader) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	if v, ok := l.cache.Get(key); ok {
		l.stats.Hit()
		return v.(*geojson.FeatureCollection), nil
	}
	l.stats.Miss()

	data, err := l.store.Read(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "can not load collection %s", key)
	}
	fc, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "collection %s", key)
	}

	l.cache.Set(key, fc, cache.DefaultExpiration)
	return fc, nil
}

// Save encodes fc under key and drops any cached copy.
func (l *Loader) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "can not encode collection")
	}
	if err := l.store.Write(ctx, key, data); err != nil {
		return errors.Wrapf(err, "can not save collection %s", key)
	}
	l.cache.Delete(key)
	return nil
}

func (l *Loader) Stats() *CacheStats {
	return &l.stats
}

func (l *Loader) Clear() {
	l.stats.Reset()
	l.cache.Flush()
}

// Decode parses a GeoJSON FeatureCollection. A bare Feature is accepted
// as a collection of one.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		return fc, nil
	}

	f, ferr := geojson.UnmarshalFeature(data)
	if ferr == nil && f.Type == "Feature" {
		fc = geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	}

	if err == nil {
		err = errors.Newf("unexpected type %q", fc.Type)
	}
	return nil, errors.Mark(errors.Wrap(err, "can not decode geojson"), ErrNotFeatureCollection)
}
