package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultMemoryBytes bounds a Memory built without an explicit size.
const DefaultMemoryBytes = 256 << 20

const memorySweepInterval = time.Minute

// Memory is a process-local cache bounded by the total size of its values.
// Least recently used entries are evicted first and a background loop
// removes expired ones until Close.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewMemory(maxBytes int64) *Memory {
	return newMemory(maxBytes, memorySweepInterval)
}

func newMemory(maxBytes int64, sweep time.Duration) *Memory {
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryBytes
	}
	items := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, []byte](),
		ttlcache.WithMaxCost[string, []byte](uint64(maxBytes), func(it ttlcache.CostItem[string, []byte]) uint64 {
			return uint64(len(it.Key) + len(it.Value))
		}),
	)
	m := &Memory{items: items, stop: make(chan struct{}), done: make(chan struct{})}
	go m.sweep(sweep)
	return m
}

func (m *Memory) sweep(every time.Duration) {
	defer close(m.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.items.DeleteExpired()
		}
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	it := m.items.Get(key)
	if it == nil {
		return nil, false
	}
	return append([]byte(nil), it.Value()...), true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Len counts stored entries. Expired entries linger until the cleanup loop
// reaches them.
func (m *Memory) Len() int { return m.items.Len() }

// Close stops the cleanup loop. It is safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	<-m.done
	return nil
}
