// Package semantic validates a parsed MiniPar program: declarations, scoping,
// expression types, channel usage and function calls. It never stops at the
// first problem; every diagnostic found in one pass is returned.
package semantic

import (
	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/scope"
)

// Analyzer performs semantic checking on the AST.
type Analyzer struct {
	table *scope.Table
	chain *scope.Chain

	channels        map[string]lexer.Span
	missingChannels map[string]bool

	Errors []diag.Diagnostic
}

// New creates an analyzer. It holds no state between runs of Check.
func New() *Analyzer {
	return &Analyzer{}
}

// Check validates prog and returns the diagnostics found, in source
// traversal order. Each call starts from a fresh symbol table, so checking
// the same program twice yields the same result.
func (a *Analyzer) Check(prog *ast.Program) []diag.Diagnostic {
	a.reset()

	if prog == nil || prog.Body == nil {
		return a.Errors
	}

	// Pass 1: collect function definitions
	a.collectFuncs(prog)

	// Pass 2: check statements
	a.checkStmt(prog.Body)

	return a.Errors
}

// Table returns the symbol table built by the last Check. Frames are kept
// after their blocks close so callers can inspect every binding.
func (a *Analyzer) Table() *scope.Table {
	return a.table
}

// Channels returns the names of the channels declared in the last Check.
func (a *Analyzer) Channels() []string {
	return sortedKeys(a.channels)
}

func (a *Analyzer) reset() {
	a.table = scope.NewTable()
	a.chain = scope.NewChain(a.table)
	a.channels = make(map[string]lexer.Span)
	a.missingChannels = make(map[string]bool)
	a.Errors = []diag.Diagnostic{}

	registerBuiltins(a.table)
}

// collectFuncs registers every function definition in the program before
// bodies are checked, so calls may precede the definition they name.
func (a *Analyzer) collectFuncs(prog *ast.Program) {
	ast.Walk(prog, func(n ast.Node) bool {
		def, ok := n.(*ast.FuncDef)
		if !ok {
			return true
		}

		fn := &scope.Function{Name: def.Name.Name, Def: def}
		for _, p := range def.Params {
			fn.Params = append(fn.Params, scope.Param{Name: p.Name.Name, Type: typeOf(p.Type)})
		}

		if err := a.table.DeclareFunc(fn); err != nil {
			help := ""
			if prev, ferr := a.table.Func(def.Name.Name); ferr == nil && prev.Builtin {
				help = "'" + def.Name.Name + "' is a builtin function"
			}
			a.reportError(diag.CodeDuplicateFunction, err.Error(), def.Name.Span(), help)
		}
		return true
	})
}
