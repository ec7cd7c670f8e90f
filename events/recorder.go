package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/hoyle1974/timeslider/telemetry"
	"github.com/hoyle1974/timeslider/timeline"
)

// Selection reports the window a view is currently being drawn for.
type Selection interface {
	Selection() (int64, int64)
}

// Recorder is a timeline.View that forwards every draw command to another
// view and appends it to a Sink.
type Recorder struct {
	lock      sync.Mutex
	sink      Sink
	inner     timeline.View
	selection Selection
	logger    telemetry.Logger
	now       func() time.Time
	err       error
	count     int
}

// NewRecorder wraps inner, which may be nil. Call Observe with the index
// that draws through the recorder so events carry its window.
func NewRecorder(sink Sink, inner timeline.View, logger telemetry.Logger) *Recorder {
	if logger == nil {
		logger = telemetry.NOPLogger{}
	}
	return &Recorder{
		sink:   sink,
		inner:  inner,
		logger: logger,
		now:    time.Now,
	}
}

func (r *Recorder) Observe(s Selection) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.selection = s
}

func (r *Recorder) AddLayer(l *timeline.Layer) {
	if r.inner != nil {
		r.inner.AddLayer(l)
	}
	r.record(OpAdd, l)
}

func (r *Recorder) RemoveLayer(l *timeline.Layer) {
	if r.inner != nil {
		r.inner.RemoveLayer(l)
	}
	r.record(OpRemove, l)
}

func (r *Recorder) record(op Op, l *timeline.Layer) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return
	}

	e := Event{
		Timestamp: r.now(),
		Op:        op,
		LayerID:   l.ID,
		FeatureID: FeatureID(l),
	}
	if r.selection != nil {
		e.Start, e.End = r.selection.Selection()
	}

	if err := r.sink.Append(e); err != nil {
		// the first failure stops recording, drawing carries on
		r.err = err
		r.logger.Error("can not record event", err, "op", op.String(), "layer", l.ID.String())
		return
	}
	r.count++
}

// Err returns the error that stopped recording, if any.
func (r *Recorder) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}

// Count is the number of events recorded so far.
func (r *Recorder) Count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Close closes the sink.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.sink.Close()
}

// FeatureID names the feature behind a layer: its GeoJSON id, then its
// "name" property, then nothing.
func FeatureID(l *timeline.Layer) string {
	if l == nil || l.Feature == nil {
		return ""
	}
	if l.Feature.ID != nil {
		return fmt.Sprint(l.Feature.ID)
	}
	if name, ok := l.Feature.Properties["name"].(string); ok {
		return name
	}
	return ""
}
