// Package interp executes a checked MiniPar program by walking its AST.
//
// SEQ blocks run their statements in order. PAR blocks start one goroutine
// per child statement and wait for all of them; a failing child is reported
// on its own and does not stop its siblings. Variables live in a scope.Table
// whose lock serializes every read and write, so PAR children sharing a
// frame never corrupt it, though the order of their updates is up to the
// scheduler.
package interp

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/channel"
	"github.com/AnriaW/minipar/internal/errors"
	"github.com/AnriaW/minipar/internal/observability"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/types"
)

// Options configures an Interpreter. Nil streams default to the process's
// standard streams.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	Channel channel.Options

	// MaxParallel caps the number of PAR children running at once; 0 means
	// no limit. A cap below the number of children that rendezvous with
	// each other deadlocks the block.
	MaxParallel int
}

// Interpreter runs programs. A single Interpreter may run several programs
// one after another; each Run starts from empty scopes and no open channels.
type Interpreter struct {
	opts Options
	log  *slog.Logger

	table    *scope.Table
	channels *channel.Registry

	outMu sync.Mutex
	errMu sync.Mutex
	inMu  sync.Mutex
	stdin *bufio.Reader

	failures atomic.Int64
}

func New(opts Options) *Interpreter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Channel == (channel.Options{}) {
		opts.Channel = channel.DefaultOptions()
	}

	return &Interpreter{
		opts:  opts,
		log:   slog.Default(),
		stdin: bufio.NewReader(opts.Stdin),
	}
}

// WithLogger sets the logger used for runtime events.
func (in *Interpreter) WithLogger(l *slog.Logger) *Interpreter {
	in.log = l
	return in
}

// Run executes prog. Every channel opened by the program is closed before
// Run returns. The error is the one that halted the outermost block or, when
// the program ran to the end, a summary of failed PAR children.
func (in *Interpreter) Run(ctx context.Context, prog *ast.Program) error {
	in.table = scope.NewTable()
	in.channels = channel.NewRegistry()
	in.failures.Store(0)

	defer func() {
		if cerr := in.channels.CloseAll(); cerr != nil {
			in.log.Warn("closing channels", "error", cerr)
		}
	}()

	if prog == nil || prog.Body == nil {
		return nil
	}

	if err := in.collectFuncs(prog); err != nil {
		return err
	}

	root := &executor{in: in, ctx: ctx, scope: in.table.Root()}
	if err := root.exec(prog.Body); err != nil {
		observability.RuntimeErrors.Inc()
		return err
	}

	if n := in.failures.Load(); n > 0 {
		return errors.Newf(errors.CodeExecution, "%d parallel statement(s) failed", n)
	}
	return nil
}

// collectFuncs fills the function namespace: builtins first, then every
// definition in the program, wherever it appears.
func (in *Interpreter) collectFuncs(prog *ast.Program) error {
	for name := range builtins {
		if err := in.table.DeclareFunc(&scope.Function{Name: name, Variadic: true, Builtin: true}); err != nil {
			return err
		}
	}

	var err error
	ast.Walk(prog, func(n ast.Node) bool {
		def, ok := n.(*ast.FuncDef)
		if !ok || err != nil {
			return err == nil
		}

		fn := &scope.Function{Name: def.Name.Name, Def: def}
		for _, p := range def.Params {
			fn.Params = append(fn.Params, scope.Param{Name: p.Name.Name, Type: types.FromAnnotation(p.Type)})
		}
		if derr := in.table.DeclareFunc(fn); derr != nil {
			err = execError(def.Span().Line, derr.Error())
		}
		return true
	})
	return err
}

func (in *Interpreter) write(line string) error {
	in.outMu.Lock()
	defer in.outMu.Unlock()

	if _, err := io.WriteString(in.opts.Stdout, line); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write output")
	}
	return nil
}

// readLine reads one line from stdin after writing prompt, if any. The
// trailing newline is dropped.
func (in *Interpreter) readLine(prompt string) (string, error) {
	if prompt != "" {
		if err := in.write(prompt); err != nil {
			return "", err
		}
	}

	in.inMu.Lock()
	defer in.inMu.Unlock()

	line, err := in.stdin.ReadString('\n')
	if err != nil && (!stderrors.Is(err, io.EOF) || line == "") {
		if stderrors.Is(err, io.EOF) {
			return "", errors.New(errors.CodeIO, "end of input")
		}
		return "", errors.Wrap(err, errors.CodeIO, "read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// reportChildFailure records a PAR child that ended with an error. The
// message goes to stderr so it is visible next to program output.
func (in *Interpreter) reportChildFailure(index int, stmt ast.Stmt, err error) {
	in.failures.Add(1)
	observability.RuntimeErrors.Inc()

	in.log.Error("parallel statement failed",
		"child", index,
		"kind", ast.KindOf(stmt),
		"line", stmt.Span().Line,
		"error", err,
	)

	in.errMu.Lock()
	defer in.errMu.Unlock()
	fmt.Fprintf(in.opts.Stderr, "runtime error: %v\n", err)
}

// executor runs statements against one current scope. PAR children get
// their own executor pointing at the shared PAR frame.
type executor struct {
	in    *Interpreter
	ctx   context.Context
	scope scope.ID
}

func (e *executor) exec(s ast.Stmt) error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	observability.StatementsExecuted.WithLabelValues(ast.KindOf(s)).Inc()
	return ast.VisitStmt[error](s, e)
}

func (e *executor) nested(id scope.ID) *executor {
	return &executor{in: e.in, ctx: e.ctx, scope: id}
}

// runBlock runs stmts in order inside a fresh frame, stopping at the first
// error.
func (e *executor) runBlock(name string, stmts []ast.Stmt) error {
	id := e.in.table.Enter(e.scope, name)
	defer e.in.table.Release(id)

	inner := e.nested(id)
	for _, stmt := range stmts {
		if err := inner.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) VisitSeqBlock(b *ast.SeqBlock) error {
	return e.runBlock("SEQ", b.Stmts)
}

func (e *executor) VisitBlock(b *ast.Block) error {
	return e.runBlock("block", b.Stmts)
}

// VisitParBlock forks one goroutine per child and joins them all. Child
// errors are reported individually and never returned, so one failure
// neither cancels nor hides the others.
func (e *executor) VisitParBlock(b *ast.ParBlock) error {
	id := e.in.table.Enter(e.scope, "PAR")
	defer e.in.table.Release(id)

	var g errgroup.Group
	if e.in.opts.MaxParallel > 0 {
		g.SetLimit(e.in.opts.MaxParallel)
	}

	for i, stmt := range b.Stmts {
		child := e.nested(id)
		observability.ParChildren.Inc()
		g.Go(func() error {
			if err := child.exec(stmt); err != nil {
				e.in.reportChildFailure(i, stmt, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *executor) VisitVarDecl(s *ast.VarDecl) error {
	declared := types.FromAnnotation(s.Type)

	v := Nil
	if s.Value != nil {
		var err error
		if v, err = e.eval(s.Value); err != nil {
			return err
		}
	}

	if _, err := e.in.table.Declare(e.scope, s.Name.Name, declared, coerce(declared, v), s.Name.Span()); err != nil {
		return execError(s.Span().Line, err.Error())
	}
	return nil
}

func (e *executor) VisitAssign(s *ast.AssignStmt) error {
	v, err := e.eval(s.Value)
	if err != nil {
		return err
	}
	return e.assign(s.Name, v, s.Span().Line)
}

func (e *executor) assign(name *ast.Ident, v Value, line int) error {
	sym, _, err := e.in.table.Lookup(e.scope, name.Name)
	if err != nil {
		return execError(line, err.Error())
	}
	if err := e.in.table.Assign(e.scope, name.Name, coerce(sym.Type, v)); err != nil {
		return execError(line, err.Error())
	}
	return nil
}

// bind assigns to a visible variable or declares it in the current frame
// with the given static type. Text read from input or a channel is never
// converted, so an existing target must be a string or untyped.
func (e *executor) bind(name *ast.Ident, typ types.Type, v Value, line int) error {
	if sym, _, err := e.in.table.Lookup(e.scope, name.Name); err == nil {
		if v.Kind() == KindString && !types.IsWildcard(sym.Type) && !types.Is(sym.Type, types.String) {
			return execErrorf(line, "cannot store text in '%s' of type %s", name.Name, sym.Type)
		}
		return e.assign(name, v, line)
	}
	if _, err := e.in.table.Declare(e.scope, name.Name, typ, v, name.Span()); err != nil {
		// Another PAR child declared it first.
		return e.assign(name, v, line)
	}
	return nil
}

func (e *executor) VisitChannelDecl(s *ast.ChannelDecl) error {
	name := s.Name.Name
	opts := e.in.opts.Channel

	var (
		c   *channel.Channel
		err error
	)
	switch s.Role {
	case ast.RoleServer:
		c, err = channel.Listen(e.ctx, name, s.Host, s.Port, opts)
	case ast.RoleClient:
		c, err = channel.Dial(e.ctx, name, s.Host, s.Port, opts)
	default:
		c = channel.NewLocal(name, opts)
	}
	if err != nil {
		return withLine(err, s.Span().Line)
	}

	if err := e.in.channels.Put(c); err != nil {
		_ = c.Close()
		return withLine(err, s.Span().Line)
	}
	return nil
}

// VisitSend joins the display text of every argument with a single space
// and sends it as one message.
func (e *executor) VisitSend(s *ast.SendStmt) error {
	line := s.Span().Line

	c, err := e.in.channels.Get(s.Channel.Name)
	if err != nil {
		return withLine(err, line)
	}

	payload, err := e.joinArgs(s.Args)
	if err != nil {
		return err
	}

	if err := c.Send(e.ctx, payload); err != nil {
		return withLine(err, line)
	}
	return nil
}

// VisitReceive reads one message. A single target gets the whole text;
// with several targets the text is split on spaces, the last target taking
// the remainder and targets without a field getting nil.
func (e *executor) VisitReceive(s *ast.ReceiveStmt) error {
	line := s.Span().Line

	c, err := e.in.channels.Get(s.Channel.Name)
	if err != nil {
		return withLine(err, line)
	}

	payload, err := c.Receive(e.ctx)
	if err != nil {
		return withLine(err, line)
	}

	fields := []string{payload}
	if len(s.Targets) > 1 {
		fields = strings.SplitN(payload, " ", len(s.Targets))
	}

	for i, target := range s.Targets {
		id, ok := target.(*ast.Ident)
		if !ok {
			return execError(line, "receive target must be a variable name")
		}

		v := Nil
		if i < len(fields) {
			v = String(fields[i])
		}
		if err := e.bind(id, types.TypeAny, v, line); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) VisitIf(s *ast.IfStmt) error {
	ok, err := e.condition("if", s.Cond)
	if err != nil {
		return err
	}

	if ok {
		return e.runBlock("if", s.Then.Stmts)
	}

	switch els := s.Else.(type) {
	case nil:
		return nil
	case *ast.Block:
		return e.runBlock("else", els.Stmts)
	default:
		return e.exec(els)
	}
}

func (e *executor) VisitWhile(s *ast.WhileStmt) error {
	for {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		ok, err := e.condition("while", s.Cond)
		if err != nil || !ok {
			return err
		}
		if err := e.runBlock("while", s.Body.Stmts); err != nil {
			return err
		}
	}
}

// VisitFor runs the body once per list element or string character. The
// loop variable and the body share one fresh frame per iteration.
func (e *executor) VisitFor(s *ast.ForStmt) error {
	iter, err := e.eval(s.Iter)
	if err != nil {
		return err
	}

	var items []Value
	switch iter.Kind() {
	case KindList:
		items = iter.Elems()
	case KindString:
		for _, r := range iter.AsString() {
			items = append(items, String(string(r)))
		}
	default:
		return execErrorf(s.Iter.Span().Line, "cannot iterate over a value of kind %s", iter.Kind())
	}

	for _, item := range items {
		if err := e.iterate(s, item); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) iterate(s *ast.ForStmt, item Value) error {
	id := e.in.table.Enter(e.scope, "for")
	defer e.in.table.Release(id)

	inner := e.nested(id)
	if _, err := e.in.table.Declare(id, s.Var.Name, types.TypeAny, item, s.Var.Span()); err != nil {
		return execError(s.Span().Line, err.Error())
	}
	for _, stmt := range s.Body.Stmts {
		if err := inner.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// VisitFuncDef is a no-op: definitions are collected before the run.
func (e *executor) VisitFuncDef(*ast.FuncDef) error { return nil }

// VisitReturn is a no-op. Function bodies are never executed, so a return
// is not reachable at run time.
func (e *executor) VisitReturn(*ast.ReturnStmt) error { return nil }

func (e *executor) VisitOutput(s *ast.OutputStmt) error {
	text, err := e.joinArgs(s.Args)
	if err != nil {
		return err
	}
	return withLine(e.in.write(text+"\n"), s.Span().Line)
}

func (e *executor) VisitInput(s *ast.InputStmt) error {
	text, err := e.in.readLine("")
	if err != nil {
		return withLine(err, s.Span().Line)
	}
	return e.bind(s.Target, types.TypeString, String(text), s.Span().Line)
}

func (e *executor) VisitExprStmt(s *ast.ExprStmt) error {
	_, err := e.eval(s.Expr)
	return err
}

// VisitOther ignores statement kinds without a handler.
func (e *executor) VisitOther(ast.Stmt) error { return nil }

func (e *executor) condition(construct string, cond ast.Expr) (bool, error) {
	v, err := e.eval(cond)
	if err != nil {
		return false, err
	}
	if v.Kind() != KindBool {
		return false, execErrorf(cond.Span().Line, "%s condition must be bool, found %s", construct, v.Kind())
	}
	return v.AsBool(), nil
}

func (e *executor) joinArgs(args []ast.Expr) (string, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		v, err := e.eval(arg)
		if err != nil {
			return "", err
		}
		parts[i] = v.String()
	}
	return strings.Join(parts, " "), nil
}

// coerce widens an int stored into a float variable.
func coerce(target types.Type, v Value) Value {
	if types.Is(target, types.Float) && v.Kind() == KindInt {
		return Float(v.AsFloat())
	}
	return v
}

func execError(line int, msg string) error {
	de := &errors.DomainError{Code: errors.CodeExecution, Message: msg}
	return de.WithContext(errors.CtxLine, line)
}

func execErrorf(line int, format string, args ...any) error {
	return execError(line, fmt.Sprintf(format, args...))
}

// withLine tags err with a source line unless it already carries one.
// Context cancellation passes through untouched.
func withLine(err error, line int) error {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var de *errors.DomainError
	if stderrors.As(err, &de) {
		if _, ok := de.Context[errors.CtxLine]; ok {
			return err
		}
	}
	return errors.AddContext(err, errors.CtxLine, line)
}
