package timeline

import (
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/telemetry"
)

// ErrAlreadyAttached is returned by Attach on a controller that is mounted.
var ErrAlreadyAttached = errors.New("controller already attached")

type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeySpace
)

type controllerConfig struct {
	start            *int64
	end              *int64
	showTicks        bool
	waitToUpdateMap  bool
	formatOutput     func(int64) string
	position         string
	steps            int
	duration         time.Duration
	keyboardControls bool
	playback         bool
	logger           telemetry.Logger
}

type ControllerOption func(*controllerConfig)

// WithControllerStart pins the slider start instead of deriving it.
func WithControllerStart(t int64) ControllerOption {
	return func(c *controllerConfig) { c.start = &t }
}

// WithControllerEnd pins the slider end instead of deriving it.
func WithControllerEnd(t int64) ControllerOption {
	return func(c *controllerConfig) { c.end = &t }
}

func WithShowTicks(show bool) ControllerOption {
	return func(c *controllerConfig) { c.showTicks = show }
}

// WithWaitToUpdateMap defers redraws while a slider handle is being dragged
// until it is released.
func WithWaitToUpdateMap(wait bool) ControllerOption {
	return func(c *controllerConfig) { c.waitToUpdateMap = wait }
}

func WithFormatOutput(fn func(int64) string) ControllerOption {
	return func(c *controllerConfig) {
		if fn != nil {
			c.formatOutput = fn
		}
	}
}

// WithPosition is a placement hint handed to Host.NewSlider.
func WithPosition(position string) ControllerOption {
	return func(c *controllerConfig) { c.position = position }
}

// WithSteps sets how many playback steps span the whole slider.
func WithSteps(steps int) ControllerOption {
	return func(c *controllerConfig) {
		if steps > 0 {
			c.steps = steps
		}
	}
}

// WithDuration sets how long playback takes from start to end.
func WithDuration(d time.Duration) ControllerOption {
	return func(c *controllerConfig) {
		if d > 0 {
			c.duration = d
		}
	}
}

func WithKeyboardControls(enabled bool) ControllerOption {
	return func(c *controllerConfig) { c.keyboardControls = enabled }
}

func WithPlayback(enabled bool) ControllerOption {
	return func(c *controllerConfig) { c.playback = enabled }
}

func WithControllerLogger(l telemetry.Logger) ControllerOption {
	return func(c *controllerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the selected [timeStart,timeEnd] window and pushes it to
// every registered Timeline. Bounds and ticks come from the union of the
// registered timelines.
//
// Controller is not safe for concurrent use.
type Controller struct {
	cfg       controllerConfig
	timelines []Timeline
	synced    []*Controller

	start     int64
	end       int64
	timeStart int64
	timeEnd   int64
	explicit  bool

	stepSize     int64
	stepDuration time.Duration
	playing      bool
	syncing      bool

	host   Host
	slider Slider
	ticks  []Tick
	output string
}

func NewController(opts ...ControllerOption) *Controller {
	cfg := controllerConfig{
		showTicks:    true,
		formatOutput: func(t int64) string { return strconv.FormatInt(t, 10) },
		position:     "bottomleft",
		steps:        1000,
		duration:     10 * time.Second,
		playback:     true,
		logger:       telemetry.NOPLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Controller{cfg: cfg}
	c.recalculate()
	c.timeStart, c.timeEnd = c.start, c.end
	c.output = c.format(c.timeStart, c.timeEnd)
	return c
}

// AddTimelines registers timelines not yet registered, in order.
func (c *Controller) AddTimelines(ts ...Timeline) {
	before := len(c.timelines)
	for _, t := range ts {
		if t == nil || slices.Contains(c.timelines, t) {
			continue
		}
		c.timelines = append(c.timelines, t)
	}
	if len(c.timelines) != before {
		c.timelinesChanged()
	}
}

// RemoveTimelines unregisters timelines. Removed timelines get no further
// updates.
func (c *Controller) RemoveTimelines(ts ...Timeline) {
	before := len(c.timelines)
	c.timelines = slices.DeleteFunc(c.timelines, func(t Timeline) bool {
		return slices.Contains(ts, t)
	})
	if len(c.timelines) != before {
		c.timelinesChanged()
	}
}

// Timelines returns the registered timelines in registration order.
func (c *Controller) Timelines() []Timeline {
	return slices.Clone(c.timelines)
}

func (c *Controller) timelinesChanged() {
	c.recalculate()
	c.cfg.logger.Debug("timelines changed",
		"timelines", len(c.timelines),
		"start", c.start,
		"end", c.end)

	if !c.explicit {
		c.timeStart, c.timeEnd = c.start, c.end
	}
	if c.slider != nil {
		c.slider.SetBounds(c.start, c.end)
	}
	c.rebuildTicks()
	c.apply(c.timeStart, c.timeEnd)
}

func (c *Controller) recalculate() {
	// Empty timelines report Empty.Min/Empty.Max and so never win.
	minStart, maxEnd := Empty.Min, Empty.Max
	for _, t := range c.timelines {
		s, e := t.Bounds()
		minStart = min(minStart, s)
		maxEnd = max(maxEnd, e)
	}

	switch {
	case c.cfg.start != nil:
		c.start = *c.cfg.start
	case minStart == Empty.Min:
		c.start = 0
	default:
		c.start = minStart
	}
	switch {
	case c.cfg.end != nil:
		c.end = *c.cfg.end
	case maxEnd == Empty.Max:
		c.end = 0
	default:
		c.end = maxEnd
	}

	c.stepSize = max(1, (c.end-c.start)/int64(c.cfg.steps))
	c.stepDuration = max(time.Millisecond, c.cfg.duration/time.Duration(c.cfg.steps))
}

// Bounds returns the slider domain.
func (c *Controller) Bounds() (int64, int64) {
	return c.start, c.end
}

// Selection returns the current window.
func (c *Controller) Selection() (int64, int64) {
	return c.timeStart, c.timeEnd
}

func (c *Controller) Output() string {
	return c.output
}

func (c *Controller) Position() string {
	return c.cfg.position
}

// Ticks returns one tick per event time. Nil when ticks are disabled.
func (c *Controller) Ticks() []Tick {
	return slices.Clone(c.ticks)
}

func (c *Controller) StepSize() int64 {
	return c.stepSize
}

// StepDuration is how long the host should wait between Advance calls.
func (c *Controller) StepDuration() time.Duration {
	return c.stepDuration
}

// GetAllTimes returns the distinct event times of every registered timeline
// inside [start,end], in increasing order.
func (c *Controller) GetAllTimes() []int64 {
	var times []int64
	for _, t := range c.timelines {
		for _, v := range t.Times() {
			if v >= c.start && v <= c.end {
				times = append(times, v)
			}
		}
	}
	slices.Sort(times)
	return slices.Compact(times)
}

// NearestEventTime finds the first event time after findTime (direction >= 0)
// or the last one before it (direction < 0). An exact match moves on to the
// neighbouring time, so repeated stepping never stalls. When no time exists
// in that direction the last or first time is returned. ok is false only
// when there are no times.
func (c *Controller) NearestEventTime(findTime int64, direction int) (int64, bool) {
	return nearestEventTime(c.GetAllTimes(), findTime, direction)
}

func nearestEventTime(times []int64, findTime int64, direction int) (int64, bool) {
	if len(times) == 0 {
		return findTime, false
	}
	if direction < 0 {
		index := sort.Search(len(times), func(j int) bool {
			return times[j] >= findTime
		})
		if index == 0 { // nothing before findTime
			return times[0], true
		}
		return times[index-1], true
	}

	index := sort.Search(len(times), func(j int) bool {
		return times[j] > findTime
	})
	if index == len(times) { // nothing after findTime
		return times[len(times)-1], true
	}
	return times[index], true
}

// SetTime moves the selection, pushes it to every timeline in registration
// order and to every synced controller.
func (c *Controller) SetTime(timeStart, timeEnd int64) {
	c.explicit = true
	c.apply(timeStart, timeEnd)

	if c.syncing {
		return
	}
	c.syncing = true
	defer func() { c.syncing = false }()
	for _, peer := range c.synced {
		if !peer.syncing {
			peer.SetTime(timeStart, timeEnd)
		}
	}
}

func (c *Controller) apply(timeStart, timeEnd int64) {
	c.timeStart, c.timeEnd = timeStart, timeEnd
	if c.slider != nil {
		c.slider.SetValues(timeStart, timeEnd)
	}
	for _, t := range c.timelines {
		t.SetTimeRange(timeStart, timeEnd)
	}
	c.setOutput(timeStart, timeEnd)
}

// SyncControl makes every later selection change on c also apply to other.
// It does not make other drive c.
func (c *Controller) SyncControl(other *Controller) {
	if other == nil || other == c || slices.Contains(c.synced, other) {
		return
	}
	c.synced = append(c.synced, other)
}

func (c *Controller) format(start, end int64) string {
	if start == end {
		return c.cfg.formatOutput(start)
	}
	return c.cfg.formatOutput(start) + " - " + c.cfg.formatOutput(end)
}

func (c *Controller) setOutput(start, end int64) {
	c.output = c.format(start, end)
	if c.slider != nil {
		c.slider.SetOutput(c.output)
	}
}

func (c *Controller) rebuildTicks() {
	if !c.cfg.showTicks {
		c.ticks = nil
		return
	}
	times := c.GetAllTimes()
	c.ticks = make([]Tick, 0, len(times))
	for _, t := range times {
		c.ticks = append(c.ticks, Tick{Time: t, Label: c.cfg.formatOutput(t)})
	}
	if c.slider != nil {
		c.slider.SetTicks(c.ticks)
	}
}

// Next moves the window so it starts at the following event time.
func (c *Controller) Next() {
	c.step(1)
}

// Prev moves the window so it starts at the preceding event time.
func (c *Controller) Prev() {
	c.step(-1)
}

func (c *Controller) step(direction int) {
	t, ok := c.NearestEventTime(c.timeStart, direction)
	if !ok {
		return
	}
	width := c.timeEnd - c.timeStart
	c.SetTime(t, t+width)
}

func (c *Controller) Playing() bool {
	return c.playing
}

// Play starts playback. The host drives it by calling Advance every
// StepDuration; synced controllers follow through SetTime.
func (c *Controller) Play() {
	if !c.cfg.playback {
		return
	}
	c.playing = true
}

func (c *Controller) Pause() {
	c.playing = false
}

func (c *Controller) Toggle() {
	if c.playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Advance performs one playback step: the window moves forward by
// StepSize. A window already at the end wraps back to the start. Playback
// stops when the window reaches the end. It reports whether playback is
// still running.
func (c *Controller) Advance() bool {
	if !c.playing {
		return false
	}
	width := c.timeEnd - c.timeStart
	if width < 0 {
		width = 0
	}
	limit := c.end - width

	next := c.timeStart + c.stepSize
	if c.timeStart >= limit {
		next = c.start
	}
	if next >= limit {
		next = limit
		c.playing = false
	}
	c.SetTime(next, next+width)
	return c.playing
}

// HandleKey applies a keyboard shortcut. It does nothing unless keyboard
// controls are enabled.
func (c *Controller) HandleKey(k Key) {
	if !c.cfg.keyboardControls {
		return
	}
	switch k {
	case KeyLeft:
		c.Prev()
	case KeyRight:
		c.Next()
	case KeySpace:
		c.Toggle()
	}
}

// HandleInput is called while a slider handle is moving.
func (c *Controller) HandleInput(start, end int64) {
	if c.cfg.waitToUpdateMap {
		c.setOutput(start, end)
		return
	}
	c.SetTime(start, end)
}

// HandleChange is called when a slider handle is released.
func (c *Controller) HandleChange(start, end int64) {
	c.SetTime(start, end)
}

// BeginDrag stops the map from panning while a handle is dragged.
func (c *Controller) BeginDrag() {
	if c.host != nil {
		c.host.SetPanning(false)
	}
}

func (c *Controller) EndDrag() {
	if c.host != nil {
		c.host.SetPanning(true)
	}
}

// Attach mounts the controller on host: the slider is created and given
// the bounds, ticks and current selection.
func (c *Controller) Attach(host Host) error {
	if c.host != nil {
		return ErrAlreadyAttached
	}
	slider, err := host.NewSlider(c.cfg.position)
	if err != nil {
		return errors.Wrap(err, "can not create slider")
	}
	c.host = host
	c.slider = slider

	c.recalculate()
	slider.SetBounds(c.start, c.end)
	c.rebuildTicks()
	slider.SetValues(c.timeStart, c.timeEnd)
	c.setOutput(c.timeStart, c.timeEnd)

	c.cfg.logger.Info("controller attached", "position", c.cfg.position, "ticks", len(c.ticks))
	return nil
}

// Detach releases the slider and gives panning back to the map. Playback
// stops.
func (c *Controller) Detach() {
	if c.host == nil {
		return
	}
	c.playing = false
	c.host.SetPanning(true)
	c.slider.Close()
	c.slider = nil
	c.host = nil
	c.cfg.logger.Info("controller detached")
}
