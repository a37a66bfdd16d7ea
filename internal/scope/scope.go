// Package scope implements the symbol table shared by the parser, the
// semantic analyzer and the interpreter.
//
// Scopes live in an arena owned by a Table and are addressed by ID. Each
// frame records its parent's ID, so there are no pointers between frames
// and a frame's lifetime is explicit: Enter allocates it, Release returns it
// to the arena. Callers keep their own "current scope" ID; the Table never
// has one. All frame access goes through a single lock, so concurrent PAR
// children may read and write the same frames without corrupting the arena.
// Interleaving of those reads and writes is still up to the scheduler.
package scope

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/types"
)

// ID addresses a frame inside a Table.
type ID int

// NoScope is the parent of the root frame.
const NoScope ID = -1

// FuncScopePrefix prefixes the name of every function body scope.
const FuncScopePrefix = "func_"

// Symbol is a variable binding.
type Symbol struct {
	Name  string
	Type  types.Type
	Value any
	Span  lexer.Span
}

// Param is a function parameter as recorded in the function namespace.
type Param struct {
	Name string
	Type types.Type
}

// Function is an entry in the process-wide function namespace.
type Function struct {
	Name     string
	Params   []Param
	Variadic bool
	Builtin  bool
	Def      *ast.FuncDef // nil for builtins
}

type frame struct {
	name    string
	parent  ID
	symbols map[string]*Symbol
	live    bool
}

// Table is the scope arena plus the function namespace.
type Table struct {
	mu     sync.RWMutex
	frames []frame
	free   []ID
	funcs  map[string]*Function
}

// NewTable returns a table holding only the root ("global") frame.
func NewTable() *Table {
	t := &Table{funcs: make(map[string]*Function)}
	t.frames = append(t.frames, frame{
		name:    "global",
		parent:  NoScope,
		symbols: make(map[string]*Symbol),
		live:    true,
	})
	return t
}

// Root returns the ID of the global frame.
func (t *Table) Root() ID { return 0 }

// Enter allocates a child frame of parent and returns its ID.
func (t *Table) Enter(parent ID, name string) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mustLive(parent)
	f := frame{name: name, parent: parent, symbols: make(map[string]*Symbol), live: true}

	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.frames[id] = f
		return id
	}
	t.frames = append(t.frames, f)
	return ID(len(t.frames) - 1)
}

// Release returns a frame to the arena. Releasing the root frame is a
// programming error and panics.
func (t *Table) Release(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == t.Root() {
		panic("scope: cannot release the global scope")
	}
	t.mustLive(id)
	t.frames[id] = frame{parent: NoScope}
	t.free = append(t.free, id)
}

// Declare binds name in frame id. It fails with ErrDuplicateDeclaration when
// the name already exists in that same frame; outer frames may hold it.
func (t *Table) Declare(id ID, name string, typ types.Type, value any, span lexer.Span) (Symbol, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mustLive(id)
	f := &t.frames[id]
	if prev, ok := f.symbols[name]; ok {
		return *prev, &Error{Kind: ErrDuplicateDeclaration, Name: name}
	}
	sym := &Symbol{Name: name, Type: typ, Value: value, Span: span}
	f.symbols[name] = sym
	return *sym, nil
}

// Lookup walks from frame id towards the root and returns a copy of the
// first binding found along with the frame that holds it.
func (t *Table) Lookup(id ID, name string) (Symbol, ID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sym, owner := t.find(id, name)
	if sym == nil {
		return Symbol{}, NoScope, &Error{Kind: ErrUndeclaredName, Name: name}
	}
	return *sym, owner, nil
}

// LookupLocal looks name up in frame id only.
func (t *Table) LookupLocal(id ID, name string) (Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.mustLive(id)
	sym, ok := t.frames[id].symbols[name]
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}

// Assign replaces the value of the nearest visible binding of name.
func (t *Table) Assign(id ID, name string, value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sym, _ := t.find(id, name)
	if sym == nil {
		return &Error{Kind: ErrUndeclaredName, Name: name}
	}
	sym.Value = value
	return nil
}

func (t *Table) find(id ID, name string) (*Symbol, ID) {
	for cur := id; cur != NoScope; cur = t.frames[cur].parent {
		t.mustLive(cur)
		if sym, ok := t.frames[cur].symbols[name]; ok {
			return sym, cur
		}
	}
	return nil, NoScope
}

func (t *Table) mustLive(id ID) {
	if id < 0 || int(id) >= len(t.frames) || !t.frames[id].live {
		panic(fmt.Sprintf("scope: frame %d is not live", id))
	}
}

// Name returns the name given to frame id when it was entered.
func (t *Table) Name(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frames[id].name
}

// Parent returns the parent of frame id, or NoScope for the root.
func (t *Table) Parent(id ID) ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frames[id].parent
}

// EnclosingFunction returns the name of the nearest function body scope
// around id, if any.
func (t *Table) EnclosingFunction(id ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for cur := id; cur != NoScope; cur = t.frames[cur].parent {
		if name, ok := strings.CutPrefix(t.frames[cur].name, FuncScopePrefix); ok {
			return name, true
		}
	}
	return "", false
}

// Visible returns every variable name visible from id, innermost first,
// without duplicates.
func (t *Table) Visible(id ID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for cur := id; cur != NoScope; cur = t.frames[cur].parent {
		local := make([]string, 0, len(t.frames[cur].symbols))
		for name := range t.frames[cur].symbols {
			if !seen[name] {
				seen[name] = true
				local = append(local, name)
			}
		}
		sort.Strings(local)
		names = append(names, local...)
	}
	return names
}

// Symbols returns copies of the bindings declared directly in frame id,
// sorted by name.
func (t *Table) Symbols(id ID) []Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.mustLive(id)
	out := make([]Symbol, 0, len(t.frames[id].symbols))
	for _, sym := range t.frames[id].symbols {
		out = append(out, *sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Frames returns the IDs of all live frames in allocation order.
func (t *Table) Frames() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []ID
	for i, f := range t.frames {
		if f.live {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// DeclareFunc adds fn to the function namespace.
func (t *Table) DeclareFunc(fn *Function) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.funcs[fn.Name]; ok {
		return &Error{Kind: ErrDuplicateFunction, Name: fn.Name}
	}
	t.funcs[fn.Name] = fn
	return nil
}

// Func looks a function up by name.
func (t *Table) Func(name string) (*Function, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fn, ok := t.funcs[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownFunction, Name: name}
	}
	return fn, nil
}

// FuncNames returns all declared function names, sorted.
func (t *Table) FuncNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
