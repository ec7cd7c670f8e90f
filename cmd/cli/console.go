package main

import (
	"fmt"
	"io"

	"github.com/hoyle1974/timeslider/events"
	"github.com/hoyle1974/timeslider/timeline"
)

// consoleView prints every draw command.
type consoleView struct {
	out io.Writer
}

func (v consoleView) AddLayer(l *timeline.Layer) {
	fmt.Fprintf(v.out, "+ %s %s\n", l.ID, events.FeatureID(l))
}

func (v consoleView) RemoveLayer(l *timeline.Layer) {
	fmt.Fprintf(v.out, "- %s %s\n", l.ID, events.FeatureID(l))
}

// consoleHost is a map host with no map: the slider prints its window.
type consoleHost struct {
	out io.Writer
}

func (h consoleHost) NewSlider(position string) (timeline.Slider, error) {
	fmt.Fprintf(h.out, "slider at %s\n", position)
	return &consoleSlider{out: h.out}, nil
}

func (h consoleHost) SetPanning(bool) {}

type consoleSlider struct {
	out      io.Writer
	min, max int64
	last     string
}

func (s *consoleSlider) SetBounds(min, max int64) {
	s.min, s.max = min, max
}

func (s *consoleSlider) SetValues(int64, int64) {}

func (s *consoleSlider) SetTicks(ticks []timeline.Tick) {
	fmt.Fprintf(s.out, "%d ticks between %d and %d\n", len(ticks), s.min, s.max)
}

func (s *consoleSlider) SetOutput(text string) {
	if text == s.last {
		return
	}
	s.last = text
	fmt.Fprintf(s.out, "[%s]\n", text)
}

func (s *consoleSlider) Close() {}
