package imaging

import (
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"
	"sync"
)

// FrameCache provides thread-safe caching of decoded ultrasound frames to
// avoid redundant disk reads while a patient is being reviewed.
//
// Frames are keyed by file path. Entries stay in memory until evicted;
// EvictPatient frees everything under a patient's directory when the viewer
// switches patients, which keeps the working set bounded to one patient.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]image.Image
}

// NewFrameCache creates an empty frame cache ready for concurrent use.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]image.Image),
	}
}

// Load retrieves a frame from the cache or decodes it from disk if absent.
// Supported formats are PNG, JPEG, and GIF. Failures are load errors: the
// caller must not run any computation on partial data.
func (c *FrameCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, loadErr("open frame", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, loadErr("decode frame", err)
	}

	c.mu.Lock()
	c.frames[path] = img
	c.mu.Unlock()

	return img, nil
}

// EvictPatient removes every cached frame whose path lives under the given
// patient directory.
func (c *FrameCache) EvictPatient(patientDir string) {
	prefix := strings.TrimSuffix(patientDir, "/") + "/"

	c.mu.Lock()
	for path := range c.frames {
		if strings.HasPrefix(path, prefix) {
			delete(c.frames, path)
		}
	}
	c.mu.Unlock()
}

// Clear removes all cached frames.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]image.Image)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}
