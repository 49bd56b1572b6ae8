package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New[string, string](time.Minute)
	c.Set("cal:1", "tag-a")

	v, ok := c.Get("cal:1")
	assert.True(t, ok)
	assert.Equal(t, "tag-a", v)

	_, ok = c.Get("cal:2")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[string, int](-time.Second)
	c.Set("k", 42)

	_, ok := c.Get("k")
	assert.False(t, ok, "entries behind the TTL horizon must miss")
}

func TestInvalidate(t *testing.T) {
	c := New[string, string](time.Minute)
	c.Set("ab:1", "tag-b")
	c.Invalidate("ab:1")

	_, ok := c.Get("ab:1")
	assert.False(t, ok)
}
