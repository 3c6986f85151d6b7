package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"talaria/internal/arena"
)

func TestAllocGet(t *testing.T) {
	a := arena.New[int](4)
	i1 := a.Alloc(10)
	i2 := a.Alloc(20)

	assert.Equal(t, 10, a.Get(i1))
	assert.Equal(t, 20, a.Get(i2))
	assert.Equal(t, 2, a.Len())
}

func TestFreeReusesSlot(t *testing.T) {
	a := arena.New[string](2)
	i1 := a.Alloc("a")
	a.Free(i1)
	i2 := a.Alloc("b")

	assert.Equal(t, i1, i2, "freed slot should be reused")
	assert.Equal(t, "b", a.Get(i2))
	assert.Equal(t, 1, a.Len())
}

func TestGetMutMutatesInPlace(t *testing.T) {
	a := arena.New[int](1)
	i := a.Alloc(1)
	*a.GetMut(i) = 42

	assert.Equal(t, 42, a.Get(i))
}

func TestFreeListOrderLIFO(t *testing.T) {
	a := arena.New[int](4)
	i1 := a.Alloc(1)
	i2 := a.Alloc(2)
	i3 := a.Alloc(3)

	a.Free(i2)
	a.Free(i3)

	// LIFO reuse: most recently freed slot comes back first.
	r1 := a.Alloc(30)
	r2 := a.Alloc(20)

	assert.Equal(t, i3, r1)
	assert.Equal(t, i2, r2)
	assert.Equal(t, 3, a.Len())
	_ = i1
}
