package render

// Context is an immutable set of named template bindings. With returns a
// child scope layered over its parent, so a base context can be shared by
// every page of a pass while each page adds its own bindings.
type Context struct {
	parent *Context
	name   string
	value  any
	bound  bool
	depth  int
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{}
}

// With returns a child context binding name to value. Bindings in the child
// shadow bindings of the same name in c. A nil receiver behaves as an empty
// context.
func (c *Context) With(name string, value any) *Context {
	if c == nil {
		c = NewContext()
	}
	return &Context{parent: c, name: name, value: value, bound: true, depth: c.depth + 1}
}

// Lookup returns the innermost binding of name.
func (c *Context) Lookup(name string) (any, bool) {
	for s := c; s != nil; s = s.parent {
		if s.bound && s.name == name {
			return s.value, true
		}
	}
	return nil, false
}

// Names returns the bound names, outermost first, without duplicates.
func (c *Context) Names() []string {
	chain := c.chain()
	seen := make(map[string]bool, len(chain))
	names := make([]string, 0, len(chain))
	for _, s := range chain {
		if !seen[s.name] {
			seen[s.name] = true
			names = append(names, s.name)
		}
	}
	return names
}

// Map flattens the context into the data value handed to templates. Values
// are shared, not copied.
func (c *Context) Map() map[string]any {
	chain := c.chain()
	out := make(map[string]any, len(chain))
	for _, s := range chain {
		out[s.name] = s.value
	}
	return out
}

// chain returns the bound scopes from the outermost to the innermost.
func (c *Context) chain() []*Context {
	if c == nil {
		return nil
	}
	scopes := make([]*Context, c.depth)
	i := c.depth
	for s := c; s != nil; s = s.parent {
		if s.bound {
			i--
			scopes[i] = s
		}
	}
	return scopes
}
