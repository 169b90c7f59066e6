package cache

import (
	"sync"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// PartCache caches part records as they join the craft to avoid subsequent
// db reads. Latency in these calls is critical to quickly process incoming
// state data.
type PartCache struct {
	m     sync.Mutex
	Parts map[uint16]core.PartInfo
}

func NewPartCache() *PartCache {
	return &PartCache{
		m:     sync.Mutex{},
		Parts: make(map[uint16]core.PartInfo),
	}
}

func (c *PartCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Parts = make(map[uint16]core.PartInfo)
}

func (c *PartCache) Lock() {
	c.m.Lock()
}

func (c *PartCache) Unlock() {
	c.m.Unlock()
}

func (c *PartCache) Get(id uint16) (core.PartInfo, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if p, ok := c.Parts[id]; ok {
		return p, true
	}
	return core.PartInfo{}, false
}

func (c *PartCache) Add(p core.PartInfo) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Parts[p.ID] = p
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
