package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/hoyle1974/timeslider/misc"
)

type memoryStorage struct {
	_    misc.NoCopy
	lock sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string][]byte)}
}

func (m *memoryStorage) GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ret := []string{}
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			ret = append(ret, k)
		}
	}
	sort.Strings(ret)

	return ret, nil
}

func (m *memoryStorage) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = misc.CopyBytes(data)

	return nil
}

type memoryStreamWriter struct {
	storage *memoryStorage
	key     string
	buf     []byte
	closed  bool
}

func (m *memoryStreamWriter) Write(data []byte) (int, error) {
	if m.closed {
		return 0, errors.Newf("stream %s is closed", m.key)
	}
	m.buf = append(m.buf, data...)
	return len(data), nil
}

func (m *memoryStreamWriter) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	m.storage.lock.Lock()
	defer m.storage.lock.Unlock()

	m.storage.data[m.key] = append(m.storage.data[m.key], m.buf...)
	m.buf = nil
	return nil
}

func (m *memoryStorage) BeginStream(ctx context.Context, key string) (StreamWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryStreamWriter{
		storage: m,
		key:     key,
	}, nil
}

func (m *memoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	data, ok := m.data[key]
	if !ok {
		return nil, errors.Wrapf(ErrDoesNotExist, "key %s", key)
	}

	return misc.CopyBytes(data), nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.data, key)

	return nil
}
