package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoadsThroughOnce(t *testing.T) {
	loads := 0
	l := NewLoader(func(_ context.Context, key string) (int, error) {
		loads++
		return len(key), nil
	}, time.Minute)

	v, err := l.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = l.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second Get is served from cache")

	_, err = l.Get(context.Background(), "wxyz")
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	loads := 0
	l := NewLoader(func(_ context.Context, key string) (int, error) {
		loads++
		return loads, nil
	}, time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Get(context.Background(), "k")
	now = now.Add(59 * time.Second)
	_, _ = l.Get(context.Background(), "k")
	assert.Equal(t, 1, loads, "still fresh just under the TTL")

	now = now.Add(2 * time.Second)
	v, err := l.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry reloads")
}

func TestInvalidate(t *testing.T) {
	loads := 0
	l := NewLoader(func(_ context.Context, key string) (int, error) {
		loads++
		return loads, nil
	}, time.Minute)

	_, _ = l.Get(context.Background(), "a")
	_, _ = l.Get(context.Background(), "b")
	l.Invalidate("a")

	_, _ = l.Get(context.Background(), "a")
	assert.Equal(t, 3, loads, "invalidated key reloads")
	_, _ = l.Get(context.Background(), "b")
	assert.Equal(t, 3, loads, "other keys stay cached")

	l.Purge()
	_, _ = l.Get(context.Background(), "b")
	assert.Equal(t, 4, loads)
}

func TestLoadErrorsAreNotCached(t *testing.T) {
	fail := true
	l := NewLoader(func(_ context.Context, key string) (int, error) {
		if fail {
			return 0, errors.New("store down")
		}
		return 7, nil
	}, time.Minute)

	_, err := l.Get(context.Background(), "k")
	require.Error(t, err)

	fail = false
	v, err := l.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	loads := 0
	l := NewLoader(func(_ context.Context, key string) (int, error) {
		loads++
		return 0, nil
	}, 0)

	_, _ = l.Get(context.Background(), "k")
	_, _ = l.Get(context.Background(), "k")
	assert.Equal(t, 2, loads)
}
