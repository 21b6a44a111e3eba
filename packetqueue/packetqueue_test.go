package packetqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New[int](3)

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	require.True(t, q.IsFull())

	require.Error(t, q.Enqueue(4))

	v, err := q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestDequeueAtMiddle(t *testing.T) {
	q := New[string](4)
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	v, err := q.DequeueAt(1)
	require.NoError(t, err)
	require.Equal(t, "b", v)
	require.Equal(t, 2, q.Size())

	v, _ = q.Index(0)
	require.Equal(t, "a", v)
	v, _ = q.Index(1)
	require.Equal(t, "c", v)
}

func TestFindIndex(t *testing.T) {
	q := New[int](4)
	q.Enqueue(10)
	q.Enqueue(20)
	q.Enqueue(30)

	idx := q.FindIndex(func(v int) bool { return v == 20 })
	require.Equal(t, 1, idx)

	idx = q.FindIndex(func(v int) bool { return v == 99 })
	require.Equal(t, -1, idx)
}

func TestUpdate(t *testing.T) {
	q := New[int](2)
	q.Enqueue(1)
	q.Enqueue(2)

	require.NoError(t, q.Update(0, 99))
	v, _ := q.Index(0)
	require.Equal(t, 99, v)

	require.Error(t, q.Update(5, 1))
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[int](2)
	q.Enqueue(7)

	v, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.Equal(t, 1, q.Size())
}

func TestEmptyQueue(t *testing.T) {
	q := New[int](2)

	require.True(t, q.IsEmpty())
	_, ok := q.Peek()
	require.False(t, ok)

	_, err := q.Dequeue()
	require.Error(t, err)
}
