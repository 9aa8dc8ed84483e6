package cache

import (
	"slices"
	"sync"

	"github.com/sstutools/fairing/internal/fairing"
	"github.com/sstutools/fairing/pkg/core"
)

// ModuleCache holds the live fairing modules of the loaded craft so command
// handlers can resolve a part reference without a store round trip. Parts
// placed in symmetry share a group; editor changes fan out across it.
type ModuleCache struct {
	m       sync.Mutex
	Modules map[core.PartRef]*fairing.Module
	groups  map[core.PartRef]int
	nextGrp int
}

func NewModuleCache() *ModuleCache {
	return &ModuleCache{
		Modules: make(map[core.PartRef]*fairing.Module),
		groups:  make(map[core.PartRef]int),
	}
}

func (c *ModuleCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Modules = make(map[core.PartRef]*fairing.Module)
	c.groups = make(map[core.PartRef]int)
}

// Add registers mod under its part reference, replacing any previous module.
// It returns the replaced module, if any.
func (c *ModuleCache) Add(mod *fairing.Module) *fairing.Module {
	c.m.Lock()
	defer c.m.Unlock()
	prev := c.Modules[mod.Ref()]
	c.Modules[mod.Ref()] = mod
	return prev
}

func (c *ModuleCache) Get(ref core.PartRef) (*fairing.Module, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	mod, ok := c.Modules[ref]
	return mod, ok
}

// Remove unregisters ref and drops it from its symmetry group.
func (c *ModuleCache) Remove(ref core.PartRef) (*fairing.Module, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	mod, ok := c.Modules[ref]
	delete(c.Modules, ref)
	delete(c.groups, ref)
	return mod, ok
}

// Refs returns the registered part references in sorted order.
func (c *ModuleCache) Refs() []core.PartRef {
	c.m.Lock()
	defer c.m.Unlock()
	refs := make([]core.PartRef, 0, len(c.Modules))
	for ref := range c.Modules {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}

func (c *ModuleCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Modules)
}

// Link places all refs in one symmetry group, merging any groups they
// already belong to.
func (c *ModuleCache) Link(refs ...core.PartRef) {
	if len(refs) < 2 {
		return
	}
	c.m.Lock()
	defer c.m.Unlock()

	merge := make(map[int]bool)
	for _, ref := range refs {
		if g, ok := c.groups[ref]; ok {
			merge[g] = true
		}
	}
	c.nextGrp++
	id := c.nextGrp
	for ref, g := range c.groups {
		if merge[g] {
			c.groups[ref] = id
		}
	}
	for _, ref := range refs {
		c.groups[ref] = id
	}
}

// Group returns the registered modules in ref's symmetry group, ref first,
// the rest sorted by reference. A part without counterparts is its own group.
func (c *ModuleCache) Group(ref core.PartRef) []*fairing.Module {
	c.m.Lock()
	defer c.m.Unlock()

	var out []*fairing.Module
	if mod, ok := c.Modules[ref]; ok {
		out = append(out, mod)
	}
	g, ok := c.groups[ref]
	if !ok {
		return out
	}
	var others []core.PartRef
	for other, og := range c.groups {
		if og == g && other != ref {
			if _, live := c.Modules[other]; live {
				others = append(others, other)
			}
		}
	}
	slices.Sort(others)
	for _, other := range others {
		out = append(out, c.Modules[other])
	}
	return out
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
