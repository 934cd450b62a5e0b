package ingestion_engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/markdave123-py/docingest/internal/core"
)

const cacheCategoryEmbedding = "embedding"

// EmbeddingCache is the cache-aside layer for chunk vectors. Keys include
// the encoder name so switching models never serves stale vectors.
// Every backend error degrades to a miss or a skipped write.
type EmbeddingCache struct {
	cache   core.Cache
	monitor core.Monitor
	model   string
	ttl     time.Duration
}

func NewEmbeddingCache(cache core.Cache, monitor core.Monitor, model string, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{cache: cache, monitor: monitor, model: model, ttl: ttl}
}

func (c *EmbeddingCache) key(text string) string {
	return "emb:" + c.model + ":" + ChunkFingerprint(text)
}

// Get returns the cached vector for text, recording a hit or miss.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	raw, ok := c.cache.Get(ctx, c.key(text))
	if ok {
		if vec, err := decodeVector(raw); err == nil {
			c.monitor.RecordCacheHit(cacheCategoryEmbedding)
			return vec, true
		}
	}
	c.monitor.RecordCacheMiss(cacheCategoryEmbedding)
	return nil, false
}

// Put stores vec for text. A failed write is logged and dropped.
func (c *EmbeddingCache) Put(ctx context.Context, text string, vec []float32) {
	if err := c.cache.Set(ctx, c.key(text), encodeVector(vec), c.ttl); err != nil {
		log.Printf("embedding cache: write skipped: %v", err)
	}
}

// encodeVector packs float32s little-endian.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("bad vector encoding: %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// ResolveOrdered maps keys to values in order. lookup answers hits; every
// distinct missing key is passed once, in first-seen order, to compute,
// and its result fills every position holding that key.
func ResolveOrdered[K comparable, V any](
	keys []K,
	lookup func(K) (V, bool),
	compute func([]K) ([]V, error),
) ([]V, error) {
	out := make([]V, len(keys))
	missAt := make(map[K][]int)
	var misses []K

	for i, k := range keys {
		if positions, seen := missAt[k]; seen {
			missAt[k] = append(positions, i)
			continue
		}
		if v, ok := lookup(k); ok {
			out[i] = v
			continue
		}
		missAt[k] = []int{i}
		misses = append(misses, k)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vals, err := compute(misses)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(misses) {
		return nil, fmt.Errorf("computed %d values for %d keys", len(vals), len(misses))
	}
	for j, k := range misses {
		for _, i := range missAt[k] {
			out[i] = vals[j]
		}
	}
	return out, nil
}
