package views

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCarouselInterval is the auto-advance period.
const DefaultCarouselInterval = 3 * time.Second

// Carousel cycles through one food item's images, looping forever.
type Carousel struct {
	interval time.Duration

	mu     sync.Mutex
	images []string
	pos    int
}

// NewCarousel returns nil when there are no images; render the
// MsgNoImages placeholder instead.
func NewCarousel(images []string, interval time.Duration) *Carousel {
	if len(images) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultCarouselInterval
	}
	return &Carousel{
		interval: interval,
		images:   append([]string(nil), images...),
	}
}

func (c *Carousel) Frames() int {
	return len(c.images)
}

func (c *Carousel) Interval() time.Duration {
	return c.interval
}

// Images returns the frames in order.
func (c *Carousel) Images() []string {
	return append([]string(nil), c.images...)
}

func (c *Carousel) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Carousel) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images[c.pos]
}

// Advance moves to the next frame, wrapping from the last to the first.
func (c *Carousel) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = (c.pos + 1) % len(c.images)
	return c.pos
}

// Back moves to the previous frame, wrapping from the first to the last.
func (c *Carousel) Back() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = (c.pos - 1 + len(c.images)) % len(c.images)
	return c.pos
}

// Status is the position indicator, e.g. "2 of 5".
func (c *Carousel) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d of %d", c.pos+1, len(c.images))
}

// Run advances the carousel every interval and reports the new position
// until ctx is done. A single frame has nothing to advance to.
func (c *Carousel) Run(ctx context.Context, onAdvance func(pos int)) {
	if c.Frames() < 2 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos := c.Advance()
			if onAdvance != nil {
				onAdvance(pos)
			}
		}
	}
}
