package storage

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

type StreamWriter interface {
	io.Writer
	io.Closer
}

// ErrDoesNotExist is returned, possibly wrapped, by Read when a key is
// missing.
var ErrDoesNotExist = errors.New("does not exist")

// System is a flat blob store. Collections are read from it and recorded
// display events are streamed into it.
type System interface {
	// Write replaces the value stored under key
	Write(ctx context.Context, key string, data []byte) error

	// BeginStream opens an append stream for key. Data is visible to Read
	// once the stream is closed.
	BeginStream(ctx context.Context, key string) (StreamWriter, error)

	// Read returns the value stored under key
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
