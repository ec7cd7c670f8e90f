package timeline

import (
	"slices"

	"github.com/hoyle1974/timeslider/interval"
	"github.com/hoyle1974/timeslider/telemetry"
	"github.com/paulmach/orb/geojson"
)

// Change is sent to subscribers after every selection update. Added and
// Removed are zero when drawing was deferred.
type Change struct {
	Start   int64
	End     int64
	Added   int
	Removed int
}

type indexConfig struct {
	drawOnSetTime bool
	intervalFn    IntervalFunc
	start         *int64
	end           *int64
	logger        telemetry.Logger
	metrics       telemetry.Metrics
}

type IndexOption func(*indexConfig)

// WithDrawOnSetTime controls whether SetStartTime/SetEndTime redraw
// immediately (the default) or wait for UpdateDisplayedLayers.
func WithDrawOnSetTime(draw bool) IndexOption {
	return func(c *indexConfig) { c.drawOnSetTime = draw }
}

// WithIntervalFunc replaces PropertyInterval.
func WithIntervalFunc(fn IntervalFunc) IndexOption {
	return func(c *indexConfig) {
		if fn != nil {
			c.intervalFn = fn
		}
	}
}

// WithStart pins the index start instead of deriving it from the features.
func WithStart(t int64) IndexOption {
	return func(c *indexConfig) { c.start = &t }
}

// WithEnd pins the index end instead of deriving it from the features.
func WithEnd(t int64) IndexOption {
	return func(c *indexConfig) { c.end = &t }
}

func WithLogger(l telemetry.Logger) IndexOption {
	return func(c *indexConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m telemetry.Metrics) IndexOption {
	return func(c *indexConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Index is a time-indexed set of features. It answers which features are
// active during the selected window and keeps a View in step with that
// answer, adding and removing only what changed.
//
// Membership is fixed at construction. Index is not safe for concurrent
// use.
type Index struct {
	cfg       indexConfig
	view      View
	tree      *interval.Tree[*geojson.Feature]
	times     []int64
	start     int64
	end       int64
	timeStart int64
	timeEnd   int64
	layers    []*Layer
	subs      []subscriber
	nextSub   int
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewIndex indexes every feature of fc whose interval can be extracted.
// Features without one are skipped. A nil view discards draw commands.
func NewIndex(fc *geojson.FeatureCollection, view View, opts ...IndexOption) *Index {
	cfg := indexConfig{
		drawOnSetTime: true,
		intervalFn:    PropertyInterval,
		logger:        telemetry.NOPLogger{},
		metrics:       telemetry.NOPMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if view == nil {
		view = nopView{}
	}

	idx := &Index{
		cfg:  cfg,
		view: view,
		tree: interval.New[*geojson.Feature](),
	}

	bounds := Empty
	var times []int64
	if fc != nil {
		for _, f := range fc.Features {
			iv, ok := cfg.intervalFn(f)
			if !ok {
				continue
			}
			if err := idx.tree.Insert(iv.Start, iv.End, f); err != nil {
				cfg.logger.Error("can not index feature", err, "start", iv.Start, "end", iv.End)
				continue
			}
			times = append(times, iv.Start, iv.End)
			bounds.Adjust(iv.Start)
			bounds.Adjust(iv.End)
		}
	}

	idx.start, idx.end = bounds.Min, bounds.Max
	if cfg.start != nil {
		idx.start = *cfg.start
	}
	if cfg.end != nil {
		idx.end = *cfg.end
	}
	idx.timeStart, idx.timeEnd = idx.start, idx.end

	slices.Sort(times)
	idx.times = slices.Compact(times)

	cfg.logger.Info("built timeline index",
		"features", idx.tree.Len(),
		"times", len(idx.times),
		"start", idx.start,
		"end", idx.end)

	return idx
}

// Bounds returns the overall start and end of the index. An empty index
// without pinned bounds reports Empty.Min and Empty.Max.
func (idx *Index) Bounds() (int64, int64) {
	return idx.start, idx.end
}

// IsEmpty reports whether no feature was indexed.
func (idx *Index) IsEmpty() bool {
	return idx.tree.Len() == 0
}

// Len returns the number of indexed features.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// Times returns the distinct interval endpoints in increasing order. The
// returned slice must not be modified.
func (idx *Index) Times() []int64 {
	return idx.times
}

// Selection returns the current window.
func (idx *Index) Selection() (int64, int64) {
	return idx.timeStart, idx.timeEnd
}

// Overlap returns every indexed feature whose interval meets [qs,qe].
func (idx *Index) Overlap(qs, qe int64) []*geojson.Feature {
	return idx.tree.Overlap(qs, qe)
}

// GetLayers returns the layers currently on the view.
func (idx *Index) GetLayers() []*Layer {
	return slices.Clone(idx.layers)
}

// Subscribe registers fn for change notifications. The returned func
// removes it again.
func (idx *Index) Subscribe(fn func(Change)) (cancel func()) {
	id := idx.nextSub
	idx.nextSub++
	idx.subs = append(idx.subs, subscriber{id: id, fn: fn})
	return func() {
		idx.subs = slices.DeleteFunc(idx.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (idx *Index) SetStartTime(t int64) {
	idx.timeStart = t
	idx.changed()
}

func (idx *Index) SetEndTime(t int64) {
	idx.timeEnd = t
	idx.changed()
}

// SetStartTimeString parses s with ParseTime. On error the selection is
// left alone.
func (idx *Index) SetStartTimeString(s string) error {
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	idx.SetStartTime(t)
	return nil
}

// SetEndTimeString parses s with ParseTime. On error the selection is left
// alone.
func (idx *Index) SetEndTimeString(s string) error {
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	idx.SetEndTime(t)
	return nil
}

// SetTimeRange moves both ends of the selection with a single redraw and a
// single notification.
func (idx *Index) SetTimeRange(start, end int64) {
	idx.timeStart, idx.timeEnd = start, end
	idx.changed()
}

func (idx *Index) changed() {
	var added, removed int
	if idx.cfg.drawOnSetTime {
		added, removed = idx.update()
	}
	c := Change{Start: idx.timeStart, End: idx.timeEnd, Added: added, Removed: removed}
	for _, s := range slices.Clone(idx.subs) {
		s.fn(c)
	}
}

// UpdateDisplayedLayers reconciles the view with the features overlapping
// the current selection.
func (idx *Index) UpdateDisplayedLayers() {
	idx.update()
}

func (idx *Index) update() (added, removed int) {
	candidates := idx.tree.Overlap(idx.timeStart, idx.timeEnd)

	keep := make([]*Layer, 0, len(idx.layers)+len(candidates))
	var drop []*Layer
	for _, l := range idx.layers {
		i := slices.Index(candidates, l.Feature)
		if i < 0 {
			drop = append(drop, l)
			continue
		}
		candidates = slices.Delete(candidates, i, i+1)
		keep = append(keep, l)
	}

	for _, l := range drop {
		idx.view.RemoveLayer(l)
	}
	for _, f := range candidates {
		l := newLayer(f)
		idx.view.AddLayer(l)
		keep = append(keep, l)
	}
	idx.layers = keep

	added, removed = len(candidates), len(drop)
	if added > 0 || removed > 0 {
		idx.cfg.logger.Debug("updated displayed layers",
			"start", idx.timeStart,
			"end", idx.timeEnd,
			"added", added,
			"removed", removed)
	}
	idx.cfg.metrics.SetCount("timeline.layers.added", int64(added))
	idx.cfg.metrics.SetCount("timeline.layers.removed", int64(removed))
	idx.cfg.metrics.SetGuage("timeline.layers.displayed", float64(len(idx.layers)))
	return added, removed
}
