package timeline

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type op struct {
	add     bool
	feature *geojson.Feature
}

// recordingView keeps every command it receives and the set of live layers.
type recordingView struct {
	ops  []op
	live map[*Layer]bool
}

func newRecordingView() *recordingView {
	return &recordingView{live: map[*Layer]bool{}}
}

func (v *recordingView) AddLayer(l *Layer) {
	v.ops = append(v.ops, op{add: true, feature: l.Feature})
	v.live[l] = true
}

func (v *recordingView) RemoveLayer(l *Layer) {
	v.ops = append(v.ops, op{add: false, feature: l.Feature})
	delete(v.live, l)
}

func (v *recordingView) reset() {
	v.ops = nil
}

func (v *recordingView) counts() (adds, removes int) {
	for _, o := range v.ops {
		if o.add {
			adds++
		} else {
			removes++
		}
	}
	return adds, removes
}

func (v *recordingView) features() map[*geojson.Feature]int {
	ret := map[*geojson.Feature]int{}
	for l := range v.live {
		ret[l.Feature]++
	}
	return ret
}

func feature(name string, start, end any) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties["name"] = name
	if start != nil {
		f.Properties["start"] = start
	}
	if end != nil {
		f.Properties["end"] = end
	}
	return f
}

func collection(fs ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		fc.Append(f)
	}
	return fc
}

func asSet(fs []*geojson.Feature) map[*geojson.Feature]int {
	ret := map[*geojson.Feature]int{}
	for _, f := range fs {
		ret[f]++
	}
	return ret
}

type fakeSlider struct {
	min, max   int64
	start, end int64
	ticks      []Tick
	output     string
	closed     bool
}

func (s *fakeSlider) SetBounds(min, max int64)   { s.min, s.max = min, max }
func (s *fakeSlider) SetValues(start, end int64) { s.start, s.end = start, end }
func (s *fakeSlider) SetTicks(ticks []Tick)      { s.ticks = ticks }
func (s *fakeSlider) SetOutput(text string)      { s.output = text }
func (s *fakeSlider) Close()                     { s.closed = true }

type fakeHost struct {
	slider   *fakeSlider
	position string
	panning  bool
	fail     bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{panning: true}
}

func (h *fakeHost) NewSlider(position string) (Slider, error) {
	if h.fail {
		return nil, errors.New("no room for a slider")
	}
	h.position = position
	h.slider = &fakeSlider{}
	return h.slider, nil
}

func (h *fakeHost) SetPanning(enabled bool) { h.panning = enabled }
