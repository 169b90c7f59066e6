// Package vessel models a craft as a rooted tree of parts and answers the
// pool queries the failure engine needs. Topology changes go through the
// Vessel so the tree stays consistent.
package vessel

import (
	"errors"
	"fmt"
)

var (
	// ErrPartNotFound is returned when a referenced part is not in the vessel.
	ErrPartNotFound = errors.New("part not found in vessel")
	// ErrDuplicatePart is returned when a part ID is already indexed.
	ErrDuplicatePart = errors.New("duplicate part id")
)

// Vessel is a craft: a rooted tree of parts with an ID index.
type Vessel struct {
	Name  string
	root  *Part
	parts map[uint16]*Part
}

// New creates a vessel with the given root part.
func New(name string, root *Part) *Vessel {
	root.attached = true
	v := &Vessel{
		Name:  name,
		root:  root,
		parts: map[uint16]*Part{root.ID: root},
	}
	return v
}

// Root returns the root part.
func (v *Vessel) Root() *Part {
	return v.root
}

// Attach adds child under parent. The parent must already be part of the
// vessel and the child's ID must be unused.
func (v *Vessel) Attach(parent, child *Part) error {
	if _, ok := v.parts[parent.ID]; !ok || !parent.attached {
		return fmt.Errorf("attach %q: %w", child.Name, ErrPartNotFound)
	}
	if _, ok := v.parts[child.ID]; ok {
		return fmt.Errorf("attach %q (id %d): %w", child.Name, child.ID, ErrDuplicatePart)
	}
	child.parent = parent
	child.attached = true
	parent.children = append(parent.children, child)
	v.parts[child.ID] = child
	return nil
}

// ByID returns the attached part with the given ID.
func (v *Vessel) ByID(id uint16) (*Part, bool) {
	p, ok := v.parts[id]
	return p, ok
}

// Parts returns all attached parts in pre-order.
func (v *Vessel) Parts() []*Part {
	var out []*Part
	var walk func(p *Part)
	walk = func(p *Part) {
		out = append(out, p)
		for _, c := range p.children {
			walk(c)
		}
	}
	if v.root != nil && v.root.attached {
		walk(v.root)
	}
	return out
}

// PartCount returns the number of attached parts.
func (v *Vessel) PartCount() int {
	return len(v.Parts())
}

// Remove detaches p and its whole subtree from the vessel. Parts in the
// subtree are unindexed and marked unattached; their mutual links survive so
// debris keeps its shape.
func (v *Vessel) Remove(p *Part) {
	indexed, ok := v.parts[p.ID]
	if !ok || indexed != p {
		return
	}
	if p.parent != nil {
		siblings := p.parent.children
		for i, c := range siblings {
			if c == p {
				p.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		p.parent = nil
	} else if p == v.root {
		v.root = nil
	}
	var drop func(q *Part)
	drop = func(q *Part) {
		q.attached = false
		delete(v.parts, q.ID)
		for _, c := range q.children {
			drop(c)
		}
	}
	drop(p)
}

// Contains reports whether p is still attached to this vessel.
func (v *Vessel) Contains(p *Part) bool {
	indexed, ok := v.parts[p.ID]
	return ok && indexed == p && p.attached
}

// ActiveEngineParts returns parts with an ignited engine in a fired stage.
func (v *Vessel) ActiveEngineParts() []*Part {
	var out []*Part
	for _, p := range v.Parts() {
		if !p.Activated {
			continue
		}
		if p.IgnitedEngine() != nil {
			out = append(out, p)
		}
	}
	return out
}

// RadialDecouplers returns all attached radial decoupler parts.
func (v *Vessel) RadialDecouplers() []*Part {
	return v.byCategory(CategoryRadialDecoupler)
}

// ControlSurfaces returns all attached control surface parts.
func (v *Vessel) ControlSurfaces() []*Part {
	return v.byCategory(CategoryControlSurface)
}

// StrutsAndFuelLines returns all attached strut and fuel line parts.
func (v *Vessel) StrutsAndFuelLines() []*Part {
	return v.byCategory(CategoryStrutOrFuelLine)
}

func (v *Vessel) byCategory(c Category) []*Part {
	var out []*Part
	for _, p := range v.Parts() {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}
