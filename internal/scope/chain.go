package scope

import (
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/types"
)

// Chain is a single-owner cursor over a Table: a stack of frame IDs where the
// top is the current scope. The parser and the semantic analyzer each walk
// the tree with one Chain. Exited frames stay in the arena so the table can
// be inspected after the walk.
type Chain struct {
	table *Table
	stack []ID
}

// NewChain returns a chain positioned at the table's root frame.
func NewChain(t *Table) *Chain {
	return &Chain{table: t, stack: []ID{t.Root()}}
}

// Table returns the underlying arena.
func (c *Chain) Table() *Table { return c.table }

// Current returns the innermost frame.
func (c *Chain) Current() ID { return c.stack[len(c.stack)-1] }

// Depth returns the number of frames on the stack, root included.
func (c *Chain) Depth() int { return len(c.stack) }

// Enter pushes a new child of the current frame.
func (c *Chain) Enter(name string) ID {
	id := c.table.Enter(c.Current(), name)
	c.stack = append(c.stack, id)
	return id
}

// Exit pops the current frame. Exiting the root is a programming error.
func (c *Chain) Exit() {
	if len(c.stack) == 1 {
		panic("scope: exit from the global scope")
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// Declare binds name in the current frame.
func (c *Chain) Declare(name string, typ types.Type, value any, span lexer.Span) (Symbol, error) {
	return c.table.Declare(c.Current(), name, typ, value, span)
}

// Lookup resolves name from the current frame outwards.
func (c *Chain) Lookup(name string) (Symbol, error) {
	sym, _, err := c.table.Lookup(c.Current(), name)
	return sym, err
}

// InFunction reports whether the current frame is inside a function body.
func (c *Chain) InFunction() bool {
	_, ok := c.table.EnclosingFunction(c.Current())
	return ok
}
