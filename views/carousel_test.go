package views

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewCarousel_NoImages(t *testing.T) {
	assert.Nil(t, NewCarousel(nil, time.Second))
	assert.Nil(t, NewCarousel([]string{}, time.Second))
}

func TestCarousel_Wraps(t *testing.T) {
	c := NewCarousel([]string{"a", "b", "c"}, 0)
	require.NotNil(t, c)
	assert.Equal(t, DefaultCarouselInterval, c.Interval())
	assert.Equal(t, 3, c.Frames())
	assert.Equal(t, "a", c.Current())
	assert.Equal(t, "1 of 3", c.Status())

	assert.Equal(t, 1, c.Advance())
	assert.Equal(t, 2, c.Advance())
	assert.Equal(t, "3 of 3", c.Status())
	assert.Equal(t, 0, c.Advance(), "last frame wraps to the first")
	assert.Equal(t, 2, c.Back(), "first frame wraps back to the last")
	assert.Equal(t, "c", c.Current())
}

func TestCarousel_ImagesAreCopied(t *testing.T) {
	src := []string{"a", "b"}
	c := NewCarousel(src, time.Second)
	src[0] = "x"
	imgs := c.Images()
	imgs[1] = "y"
	assert.Equal(t, []string{"a", "b"}, c.Images())
}

func TestCarousel_RunAdvancesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCarousel([]string{"a", "b"}, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, func(pos int) {
			mu.Lock()
			seen = append(seen, pos)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0, 1}, seen[:3])
}

func TestCarousel_RunSingleFrameReturns(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCarousel([]string{"only"}, time.Millisecond)
	c.Run(context.Background(), func(int) { t.Error("single frame must not advance") })
	assert.Equal(t, 0, c.Position())
}

func TestCollapse(t *testing.T) {
	c := NewCollapse()
	assert.False(t, c.Collapsed("s1"))
	assert.True(t, c.Toggle("s1"))
	assert.False(t, c.Collapsed("s2"))
	assert.False(t, c.Toggle("s1"))

	c.Toggle("s2")
	c.Reset()
	assert.False(t, c.Collapsed("s2"))
}
