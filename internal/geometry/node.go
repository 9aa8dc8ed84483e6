package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Flags classify a scene node.
type Flags uint8

const (
	// Renderable nodes contribute to render bounds and drag rendering.
	Renderable Flags = 1 << iota
	// Collider nodes carry collision geometry.
	Collider
	// EditorOnly nodes exist only while designing the vessel.
	EditorOnly
)

// Node is one element of the generated scene graph.
type Node struct {
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Mesh     *Mesh
	Flags    Flags
	Opacity  float64

	// ColliderEnabled toggles collision for Collider nodes.
	ColliderEnabled bool

	parent   *Node
	children []*Node
}

// NewNode creates a detached node with identity transform.
func NewNode(name string, flags Flags) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl64.QuatIdent(),
		Flags:    flags,
		Opacity:  1,
	}
}

// AddChild attaches c below n, detaching it from any previous parent.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *Node) removeChild(c *Node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Children returns the direct children.
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the parent node or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Has reports whether all of f are set.
func (n *Node) Has(f Flags) bool {
	return n.Flags&f == f
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the subtree of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Find returns the first node named name in the subtree, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}
		if x.Name == name {
			found = x
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree including n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}

// LocalMatrix is translation * rotation.
func (n *Node) LocalMatrix() mgl64.Mat4 {
	return mgl64.Translate3D(n.Position[0], n.Position[1], n.Position[2]).Mul4(n.Rotation.Mat4())
}

// WorldMatrix composes the local matrices up to the root.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Release detaches n from its parent and tears down its subtree so that no
// reference to the old geometry survives a rebuild.
func (n *Node) Release() {
	if n.parent != nil {
		n.parent.removeChild(n)
	}
	for _, c := range n.children {
		c.parent = nil
		c.Release()
	}
	n.children = nil
	n.Mesh = nil
}

// Bounds is an axis-aligned bounding box. The zero value is empty.
type Bounds struct {
	Min, Max mgl64.Vec3
	valid    bool
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return !b.valid
}

// Encapsulate grows b to include p.
func (b *Bounds) Encapsulate(p mgl64.Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Contains reports whether p lies inside b (inclusive).
func (b Bounds) Contains(p mgl64.Vec3) bool {
	if !b.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of b.
func (b Bounds) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extents of b.
func (b Bounds) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// WorldVertices calls fn with every vertex of every renderable, non editor-only
// node below root, transformed into root space.
func WorldVertices(root *Node, fn func(mgl64.Vec3)) {
	root.Walk(func(n *Node) bool {
		if n.Has(EditorOnly) {
			return false
		}
		if !n.Has(Renderable) || n.Mesh.IsEmpty() {
			return true
		}
		m := n.WorldMatrix()
		if root.parent != nil {
			m = root.WorldMatrix().Inv().Mul4(m)
		}
		for _, v := range n.Mesh.Vertices {
			fn(m.Mul4x1(v.Vec4(1)).Vec3())
		}
		return true
	})
}

// RenderBounds is the combined bounds of all renderable geometry below root.
func RenderBounds(root *Node) Bounds {
	var b Bounds
	WorldVertices(root, b.Encapsulate)
	return b
}
