package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fallback reads and writes the primary cache and falls back to the secondary
// when the primary errors. Writes go to both.
type Fallback struct {
	primary   BytesCache
	secondary BytesCache
	onError   func(op string, err error)
}

// NewFallback builds a two-level cache. A nil primary uses the secondary only.
func NewFallback(primary, secondary BytesCache, onError func(op string, err error)) *Fallback {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Fallback{primary: primary, secondary: secondary, onError: onError}
}

func (f *Fallback) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if f.primary != nil {
		b, ok, err := f.primary.GetBytes(ctx, key)
		if err == nil {
			if ok {
				return b, true, nil
			}
		} else {
			f.onError("get", err)
		}
	}
	return f.secondary.GetBytes(ctx, key)
}

func (f *Fallback) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.primary != nil {
		if err := f.primary.SetBytes(ctx, key, value, ttl); err != nil {
			f.onError("set", err)
		}
	}
	return f.secondary.SetBytes(ctx, key, value, ttl)
}
