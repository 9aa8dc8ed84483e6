package cache

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/fairing"
	"github.com/sstutools/fairing/internal/sim"
	"github.com/sstutools/fairing/pkg/core"
)

func newModule(w *sim.World, ref core.PartRef) *fairing.Module {
	w.AddPart(ref, mgl64.Vec3{}, true)
	return fairing.New(fairing.Dependencies{
		Part:   w.Host(ref),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, config.DefaultFairingConfig(), fairing.SceneEditor)
}

func TestModuleCache_New(t *testing.T) {
	c := NewModuleCache()

	require.NotNil(t, c)
	assert.NotNil(t, c.Modules)
	assert.Zero(t, c.Len())
}

func TestModuleCache_AddAndGet(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	mod := newModule(w, "f1")

	assert.Nil(t, c.Add(mod))

	got, ok := c.Get("f1")
	require.True(t, ok)
	assert.Same(t, mod, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestModuleCache_AddReplaces(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	first := newModule(w, "f1")
	second := newModule(w, "f1")

	c.Add(first)
	prev := c.Add(second)

	assert.Same(t, first, prev)
	got, _ := c.Get("f1")
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.Len())
}

func TestModuleCache_RemoveAndRefs(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	for _, ref := range []core.PartRef{"f3", "f1", "f2"} {
		c.Add(newModule(w, ref))
	}

	assert.Equal(t, []core.PartRef{"f1", "f2", "f3"}, c.Refs())

	mod, ok := c.Remove("f2")
	require.True(t, ok)
	assert.Equal(t, core.PartRef("f2"), mod.Ref())
	assert.Equal(t, []core.PartRef{"f1", "f3"}, c.Refs())

	_, ok = c.Remove("f2")
	assert.False(t, ok)
}

func TestModuleCache_Reset(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	c.Add(newModule(w, "f1"))
	c.Add(newModule(w, "f2"))
	c.Link("f1", "f2")

	c.Reset()

	assert.Zero(t, c.Len())
	assert.Empty(t, c.Group("f1"))
}

func TestModuleCache_GroupWithoutLink(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	c.Add(newModule(w, "f1"))

	group := c.Group("f1")
	require.Len(t, group, 1)
	assert.Equal(t, core.PartRef("f1"), group[0].Ref())
	assert.Empty(t, c.Group("ghost"))
}

func TestModuleCache_LinkGroup(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	for _, ref := range []core.PartRef{"a", "b", "c", "d"} {
		c.Add(newModule(w, ref))
	}

	c.Link("c", "a", "b")

	refs := func(ms []*fairing.Module) []core.PartRef {
		out := make([]core.PartRef, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.Ref())
		}
		return out
	}
	assert.Equal(t, []core.PartRef{"b", "a", "c"}, refs(c.Group("b")))
	assert.Equal(t, []core.PartRef{"d"}, refs(c.Group("d")))

	// linking into an existing group merges
	c.Link("d", "a")
	assert.Equal(t, []core.PartRef{"a", "b", "c", "d"}, refs(c.Group("a")))

	// removed parts leave the group
	c.Remove("c")
	assert.Equal(t, []core.PartRef{"a", "b", "d"}, refs(c.Group("a")))
}

func TestModuleCache_LinkSingleIsNoop(t *testing.T) {
	w := sim.NewWorld()
	c := NewModuleCache()
	c.Add(newModule(w, "a"))
	c.Link("a")
	assert.Len(t, c.Group("a"), 1)
}

func TestModuleCache_Concurrent(t *testing.T) {
	w := sim.NewWorld()
	mods := make([]*fairing.Module, 50)
	for i := range mods {
		mods[i] = newModule(w, core.PartRef(string(rune('A'+i))))
	}

	c := NewModuleCache()
	var wg sync.WaitGroup
	for _, m := range mods {
		wg.Add(1)
		go func(m *fairing.Module) {
			defer wg.Done()
			c.Add(m)
			c.Get(m.Ref())
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	assert.Equal(t, 0, c.Value())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, c.Value())

	c.Set(7)
	assert.Equal(t, 7, c.Value())
}
