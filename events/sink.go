package events

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/misc"
	"github.com/hoyle1974/timeslider/storage"
)

const layout = "20060102_150405.000000000"

const Prefix = "events/"

// DefaultMaxSinkSize is the stream size after which a sink starts a new
// event file.
const DefaultMaxSinkSize = 8 * 1024 * 1024

type Sink interface {
	Append(event Event) error
	Close() error
}

type sink struct {
	ctx          context.Context
	key          string
	last         time.Time
	store        storage.System
	writer       storage.StreamWriter
	bytesWritten int64
	maxSinkSize  int64
	now          func() time.Time
}

// NewSink streams events into store under events/. A maxSinkSize of zero
// or less uses DefaultMaxSinkSize.
func NewSink(ctx context.Context, s storage.System, maxSinkSize int64) (Sink, error) {
	if maxSinkSize <= 0 {
		maxSinkSize = DefaultMaxSinkSize
	}
	sk := &sink{
		ctx:         ctx,
		store:       s,
		maxSinkSize: maxSinkSize,
		now:         time.Now,
	}
	if err := sk.open(sk.now()); err != nil {
		return nil, err
	}
	return sk, nil
}

func eventKey(t time.Time) string {
	return Prefix + t.UTC().Format(layout) + ".events"
}

func (s *sink) open(t time.Time) error {
	if !s.last.IsZero() && !t.After(s.last) {
		// keys must keep increasing even when the clock does not move
		t = s.last.Add(time.Nanosecond)
	}
	key := eventKey(t)
	writer, err := s.store.BeginStream(s.ctx, key)
	if err != nil {
		return errors.Wrapf(err, "can not begin event stream %s", key)
	}
	s.writer = writer
	s.key = key
	s.last = t
	s.bytesWritten = 0
	return nil
}

// Append implements Sink.
func (s *sink) Append(event Event) error {
	if s.writer == nil {
		return errors.New("sink is closed")
	}
	b, err := misc.EncodeToBytes(event)
	if err != nil {
		return errors.Wrap(err, "can not encode event")
	}
	err = binary.Write(s.writer, binary.BigEndian, uint32(len(b)))
	if err != nil {
		return err
	}
	bytesWritten, err := s.writer.Write(b)
	if err != nil {
		return err
	}
	if bytesWritten != len(b) {
		return errors.New("could not write all data to the stream")
	}
	s.bytesWritten += int64(bytesWritten) + 4

	if s.bytesWritten >= s.maxSinkSize {
		if err := s.writer.Close(); err != nil {
			return errors.Wrap(err, "can not close event stream")
		}
		return s.open(s.now())
	}
	return nil
}

func (s *sink) Close() error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}

// GetEventFiles lists the event files in store, oldest first.
func GetEventFiles(ctx context.Context, store storage.System) ([]string, error) {
	keys, err := store.GetKeysWithPrefix(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ReadEvents decodes one event file.
func ReadEvents(ctx context.Context, store storage.System, key string) ([]Event, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	reader := bytes.NewReader(data)

	var events []Event
	for reader.Len() > 0 {
		var length uint32
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, errors.Wrapf(err, "can not read record length in %s", key)
		}

		content := make([]byte, length)
		if _, err := io.ReadFull(reader, content); err != nil {
			return nil, errors.Wrapf(err, "truncated record in %s", key)
		}

		var e Event
		if err := misc.DecodeFromBytes(content, &e); err != nil {
			return nil, errors.Wrapf(err, "can not decode record in %s", key)
		}
		events = append(events, e)
	}
	return events, nil
}

// ReadAll decodes every event file in store in the order they were
// written.
func ReadAll(ctx context.Context, store storage.System) ([]Event, error) {
	keys, err := GetEventFiles(ctx, store)
	if err != nil {
		return nil, err
	}
	var all []Event
	for _, key := range keys {
		events, err := ReadEvents(ctx, store, key)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}
