package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSCBasic(t *testing.T) {
	q := New[int](4)
	assert.True(t, q.IsEmpty())

	require.True(t, q.Enqueue(1))
	require.True(t, q.Enqueue(2))
	require.True(t, q.Enqueue(3))
	require.True(t, q.Enqueue(4))
	assert.True(t, q.IsFull())
	assert.False(t, q.Enqueue(5))

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, q.Enqueue(5))

	for _, want := range []int{2, 3, 4, 5} {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestSPSCConcurrentProducerConsumer(t *testing.T) {
	const n = 100000
	q := New[int](1024)
	done := make(chan struct{})

	go func() {
		defer close(done)
		next := 0
		for next < n {
			v, ok := q.Dequeue()
			if !ok {
				continue
			}
			assert.Equal(t, next, v)
			next++
		}
	}()

	for i := 0; i < n; i++ {
		for !q.Enqueue(i) {
		}
	}
	<-done
}

func TestSPSCPanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New[int](3) })
}
