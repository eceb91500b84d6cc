package sim

import (
	"fmt"
	"strings"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is an element that is being simulated. Components form a tree
// through parent references; a component's full name is its parent's name
// joined with its local name by a dot.
type Component interface {
	Named
	Handler
}

// NameMustBeValid panics if the given local name is empty or contains a
// separator.
func NameMustBeValid(name string) {
	if name == "" {
		panic("component name must not be empty")
	}
	if strings.Contains(name, ".") {
		panic(fmt.Sprintf("component name %q must not contain '.'", name))
	}
}

// ComponentBase provides the name and parent bookkeeping that other
// components can embed.
type ComponentBase struct {
	HookableBase

	name   string
	parent Named
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string, parent Named) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.parent = parent
	return c
}

// Name returns the full hierarchical name of the component.
func (c *ComponentBase) Name() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.Name() + "." + c.name
}

// LocalName returns the name of the component without the parent prefix.
func (c *ComponentBase) LocalName() string {
	return c.name
}

// Parent returns the parent of the component, or nil for a root component.
func (c *ComponentBase) Parent() Named {
	return c.parent
}
