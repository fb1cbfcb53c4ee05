package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPoolExhaustion(t *testing.T) {
	p := newIDPool(3)
	seen := map[uint16]bool{}
	for i := 0; i < 3; i++ {
		id, ok := p.acquire()
		assert.True(t, ok)
		assert.False(t, seen[id])
		seen[id] = true
	}
	_, ok := p.acquire()
	assert.False(t, ok)
	assert.Equal(t, 0, p.freeCount())
}

func TestIDPoolRecycle(t *testing.T) {
	p := newIDPool(2)
	a, _ := p.acquire()
	b, _ := p.acquire()
	p.release(a)
	assert.Equal(t, 1, p.freeCount())
	c, ok := p.acquire()
	assert.True(t, ok)
	assert.Equal(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestPosMod(t *testing.T) {
	assert.Equal(t, 3, posMod(3, 10))
	assert.Equal(t, 7, posMod(-3, 10))
	assert.Equal(t, 0, posMod(20, 10))
	assert.Equal(t, 0, posMod(-20, 10))
	assert.Equal(t, 9, posMod(-1, 10))
}
