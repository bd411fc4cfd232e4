package pool

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_OrderPreserved(t *testing.T) {
	items := []int{5, 3, 1, 4, 2}

	results := Map(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		// Later items finish first; results must still follow input order.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return strconv.Itoa(n), nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, strconv.Itoa(n), results[i].Value)
	}
}

func TestMap_ConcurrencyBound(t *testing.T) {
	const limit = 3

	var active, peak int64
	var mu sync.Mutex

	items := make([]int, 20)
	Map(context.Background(), items, limit, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt64(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak, int64(limit))
	assert.Positive(t, peak)
}

func TestMap_FailureIsolation(t *testing.T) {
	items := []int{0, 1, 2, 3}
	boom := errors.New("boom")

	results := Map(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			return 0, boom
		}
		return n * 10, nil
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 30, results[3].Value)
}

func TestMap_LimitCoercion(t *testing.T) {
	t.Run("zero limit runs sequentially", func(t *testing.T) {
		results := Map(context.Background(), []int{1, 2}, 0, func(_ context.Context, n int) (int, error) {
			return n, nil
		})
		require.Len(t, results, 2)
		assert.Equal(t, 1, results[0].Value)
		assert.Equal(t, 2, results[1].Value)
	})

	t.Run("limit above item count is capped", func(t *testing.T) {
		results := Map(context.Background(), []int{1}, 100, func(_ context.Context, n int) (int, error) {
			return n, nil
		})
		require.Len(t, results, 1)
	})
}

func TestMap_EmptyInput(t *testing.T) {
	results := Map(context.Background(), nil, 4, func(_ context.Context, _ int) (int, error) {
		t.Fatal("fn must not be called for empty input")
		return 0, nil
	})
	assert.Nil(t, results)
}

func TestMap_PanicCaptured(t *testing.T) {
	results := Map(context.Background(), []int{0, 1}, 2, func(_ context.Context, n int) (int, error) {
		if n == 0 {
			panic("bad item")
		}
		return n, nil
	})

	require.Len(t, results, 2)
	assert.ErrorContains(t, results[0].Err, "panic")
	assert.NoError(t, results[1].Err)
}
