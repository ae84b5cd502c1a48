package views

// Collapse tracks which sections are collapsed. Every section starts
// expanded and flips independently of the others.
type Collapse struct {
	collapsed map[string]bool
}

func NewCollapse() *Collapse {
	return &Collapse{collapsed: make(map[string]bool)}
}

// Toggle flips one section and reports whether it is now collapsed.
func (c *Collapse) Toggle(sectionID string) bool {
	c.collapsed[sectionID] = !c.collapsed[sectionID]
	return c.collapsed[sectionID]
}

func (c *Collapse) Collapsed(sectionID string) bool {
	return c.collapsed[sectionID]
}

// Reset expands every section.
func (c *Collapse) Reset() {
	clear(c.collapsed)
}

func (c *Collapse) clone() *Collapse {
	out := NewCollapse()
	for k, v := range c.collapsed {
		out.collapsed[k] = v
	}
	return out
}
