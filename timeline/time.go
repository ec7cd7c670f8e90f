package timeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-openapi/strfmt"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidTime is returned when a date-like value can not be turned into
// a millisecond timestamp.
var ErrInvalidTime = errors.New("invalid time")

// Interval is a closed [Start,End] span in milliseconds since the Unix
// epoch. Start <= End is not required.
type Interval struct {
	Start int64
	End   int64
}

// IntervalFunc extracts the interval of a feature. Returning false means the
// feature has no time and is never indexed.
type IntervalFunc func(f *geojson.Feature) (Interval, bool)

// Empty is the range of an index with nothing in it.
var Empty = Range{Min: math.MaxInt64, Max: math.MinInt64}

// Range accumulates the smallest span covering every timestamp it was
// adjusted with.
type Range struct {
	Min int64
	Max int64
}

func (r *Range) Adjust(timestamp int64) {
	if timestamp < r.Min {
		r.Min = timestamp
	}
	if timestamp > r.Max {
		r.Max = timestamp
	}
}

func (r Range) Contains(timestamp int64) bool {
	return timestamp >= r.Min && timestamp <= r.Max
}

func (r Range) IsEmpty() bool {
	return r.Min > r.Max
}

// ParseTime turns a date-like string into milliseconds since the epoch. It
// accepts RFC 3339 date-times, full dates (2006-01-02, taken as UTC
// midnight) and plain integer milliseconds.
func ParseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(ErrInvalidTime, "empty time")
	}
	if dt, err := strfmt.ParseDateTime(s); err == nil {
		return time.Time(dt).UnixMilli(), nil
	}
	if d, err := time.Parse(strfmt.RFC3339FullDate, s); err == nil {
		return d.UTC().UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	return 0, errors.Wrapf(ErrInvalidTime, "can not parse %q", s)
}

// toMillis converts a property value. JSON numbers arrive as float64.
func toMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case float32:
		return toMillis(float64(t))
	case int:
		return int64(t), true
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case time.Time:
		return t.UnixMilli(), true
	case strfmt.DateTime:
		return time.Time(t).UnixMilli(), true
	case string:
		ms, err := ParseTime(t)
		return ms, err == nil
	}
	return 0, false
}

// PropertyInterval reads the "start" and "end" properties of a feature.
func PropertyInterval(f *geojson.Feature) (Interval, bool) {
	return propertyInterval(f, "start", "end")
}

// PropertiesInterval reads the interval from the named properties.
func PropertiesInterval(startKey, endKey string) IntervalFunc {
	return func(f *geojson.Feature) (Interval, bool) {
		return propertyInterval(f, startKey, endKey)
	}
}

func propertyInterval(f *geojson.Feature, startKey, endKey string) (Interval, bool) {
	if f == nil || f.Properties == nil {
		return Interval{}, false
	}
	start, ok := toMillis(f.Properties[startKey])
	if !ok {
		return Interval{}, false
	}
	end, ok := toMillis(f.Properties[endKey])
	if !ok {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}
