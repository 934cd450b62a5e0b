package cache

import (
	"fmt"

	"github.com/markdave123-py/docingest/internal/core"
)

// Store is a core.Cache that owns resources released by Close.
type Store interface {
	core.Cache
	Close() error
}

// New builds the cache named by backend: "sqlite", "memory" or "none".
// maxBytes bounds the memory backend; zero picks DefaultMemoryBytes.
func New(backend, path string, maxBytes int64) (Store, error) {
	switch backend {
	case "sqlite":
		c, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory", "":
		return NewMemory(maxBytes), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
