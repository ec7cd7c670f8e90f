package timeline

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// Layer is one feature drawn on the map view. Layers are matched to index
// entries by the feature pointer, never by value.
type Layer struct {
	ID      uuid.UUID
	Feature *geojson.Feature
}

func newLayer(f *geojson.Feature) *Layer {
	return &Layer{ID: uuid.New(), Feature: f}
}

// View is the map surface an Index draws on.
type View interface {
	AddLayer(l *Layer)
	RemoveLayer(l *Layer)
}

type nopView struct{}

func (nopView) AddLayer(*Layer)    {}
func (nopView) RemoveLayer(*Layer) {}

// Tick is a marked position on the slider.
type Tick struct {
	Time  int64
	Label string
}

// Slider is the range-slider widget a Controller drives.
type Slider interface {
	SetBounds(min, max int64)
	SetValues(start, end int64)
	SetTicks(ticks []Tick)
	SetOutput(text string)
	Close()
}

// Host is whatever a Controller is mounted on: it creates the slider
// and owns map panning.
type Host interface {
	NewSlider(position string) (Slider, error)
	SetPanning(enabled bool)
}

// Timeline is what a Controller needs from each registered index.
type Timeline interface {
	Bounds() (start, end int64)
	Times() []int64
	SetTimeRange(start, end int64)
}
