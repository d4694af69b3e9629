package refresh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/testutil"
)

func TestLatest_Empty(t *testing.T) {
	l := New[string]()
	v, seq, ok := l.Value()
	assert.Empty(t, v)
	assert.Zero(t, seq)
	assert.False(t, ok)
}

func TestLatest_StaleResultDropped(t *testing.T) {
	l := New[string]()

	slow := l.Begin()
	fast := l.Begin()

	assert.True(t, l.Apply(fast, "fresh"))
	assert.False(t, l.Apply(slow, "stale"))

	v, seq, ok := l.Value()
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, fast, seq)
}

func TestLatest_InOrderResultsApplied(t *testing.T) {
	l := New[int]()

	first := l.Begin()
	second := l.Begin()
	assert.True(t, l.Apply(first, 1))
	assert.True(t, l.Apply(second, 2))
	assert.False(t, l.Apply(second, 3), "same sequence applies once")

	v, _, _ := l.Value()
	assert.Equal(t, 2, v)
}

func TestLatest_SharedClock(t *testing.T) {
	c := NewClock()
	a := New[int](WithClock(c))
	b := New[int](WithClock(c))

	assert.Equal(t, int64(1), a.Begin())
	assert.Equal(t, int64(2), b.Begin())
}

func TestRefresh_OverlappingLoads(t *testing.T) {
	l := New[string]()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan bool)
	go func() {
		applied, err := l.Refresh(ctx, func(context.Context) (string, error) {
			close(started)
			<-release
			return "slow", nil
		})
		assert.NoError(t, err)
		done <- applied
	}()
	<-started

	applied, err := l.Refresh(ctx, func(context.Context) (string, error) { return "fast", nil })
	require.NoError(t, err)
	assert.True(t, applied)

	close(release)
	assert.False(t, <-done, "earlier load finishing later is dropped")

	v, _, _ := l.Value()
	assert.Equal(t, "fast", v)
}

func TestRefresh_FetchError(t *testing.T) {
	l := New[string]()
	require.True(t, l.Apply(l.Begin(), "kept"))

	boom := errors.New("offline")
	applied, err := l.Refresh(context.Background(), func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, applied)

	v, _, _ := l.Value()
	assert.Equal(t, "kept", v)
}

func TestRefresh_Cancelled(t *testing.T) {
	l := New[string]()
	ctx, cancel := context.WithCancel(context.Background())

	applied, err := l.Refresh(ctx, func(context.Context) (string, error) {
		cancel()
		return "late", nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, applied)

	_, _, ok := l.Value()
	assert.False(t, ok)
}

func TestRefresh_Collection(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.Seed(t, s, record.CollectionCatalog, record.CatalogItem{ID: "a"}, record.CatalogItem{ID: "b"})

	l := New[[]record.CatalogItem]()
	applied, err := l.Refresh(context.Background(), Collection[record.CatalogItem](s, record.CollectionCatalog))
	require.NoError(t, err)
	assert.True(t, applied)

	items, _, _ := l.Value()
	assert.Equal(t, []string{"a", "b"}, testutil.Keys(items))
}
