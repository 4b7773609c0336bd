package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// cachedImage is a rendered PNG kept for later download.
type cachedImage struct {
	id       string
	png      []byte
	program  string
	created  time.Time
	lastUsed time.Time
}

// ImageCache maps opaque IDs to rendered PNGs so a Render call can hand
// back a URL instead of only the bytes.
type ImageCache struct {
	mu     sync.Mutex
	images map[string]*cachedImage
	nextID atomic.Uint64
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{images: make(map[string]*cachedImage)}
}

// Put stores png and returns its ID.
func (c *ImageCache) Put(png []byte, program string) string {
	id := fmt.Sprintf("g-%d", c.nextID.Add(1))
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[id] = &cachedImage{id: id, png: png, program: program, created: now, lastUsed: now}
	return id
}

// Get returns the PNG stored under id.
func (c *ImageCache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, ok := c.images[id]
	if !ok {
		return nil, false
	}
	img.lastUsed = time.Now()
	return img.png, true
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Sweep removes images that haven't been fetched within ttl.
func (c *ImageCache) Sweep(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, img := range c.images {
		if img.lastUsed.Before(cutoff) {
			delete(c.images, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("swept %d cached images", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (c *ImageCache) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				c.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
