// Package driver wires the MiniPar pipeline together: lex and parse, check,
// then run when the front end found no errors.
package driver

import (
	"context"
	"crypto/sha256"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/errors"
	"github.com/AnriaW/minipar/internal/interp"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/observability"
	"github.com/AnriaW/minipar/internal/parser"
	"github.com/AnriaW/minipar/internal/semantic"
)

// DefaultCacheSize bounds the number of checked sources kept in memory.
const DefaultCacheSize = 64

// Unit is the front-end result for one source.
type Unit struct {
	Filename string
	Source   string
	Program  *ast.Program // nil after a lexical or syntax error

	// Diagnostics holds parser warnings plus either the fatal lexical or
	// syntax error or the semantic errors, in that order.
	Diagnostics []diag.Diagnostic

	// Err is set when the unit must not run; its code is LEXICAL, SYNTAX
	// or SEMANTIC.
	Err error
}

// OK reports whether the unit may be executed.
func (u *Unit) OK() bool { return u.Err == nil }

type Options struct {
	CacheSize int
	Interp    interp.Options
}

type Driver struct {
	opts  Options
	cache *lru.ARCCache
	log   *slog.Logger
}

func New(opts Options) (*Driver, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	cache, err := lru.NewARC(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}

	return &Driver{opts: opts, cache: cache, log: slog.Default()}, nil
}

// CheckFile reads path and checks it.
func (d *Driver) CheckFile(path string) (*Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		de := &errors.DomainError{Code: errors.CodeIO, Message: "read source", Err: err}
		return nil, de.WithContext(errors.CtxPath, path)
	}
	return d.Check(path, string(src)), nil
}

// Check runs the front end over src. Results are cached by file name and
// content, so re-checking an unchanged file is free.
func (d *Driver) Check(filename, src string) *Unit {
	key := cacheKey(filename, src)
	if cached, ok := d.cache.Get(key); ok {
		d.log.Debug("analysis cache hit", "file", filename)
		return cached.(*Unit)
	}

	u := compile(filename, src)
	d.cache.Add(key, u)
	return u
}

func compile(filename, src string) *Unit {
	u := &Unit{Filename: filename, Source: src}

	prog, warnings, err := parser.Parse(filename, src)
	for _, w := range warnings {
		u.Diagnostics = append(u.Diagnostics, w.ToDiagnostic())
	}

	if err != nil {
		var lexErr *lexer.LexerError
		var parseErr *parser.ParseError
		switch {
		case stderrors.As(err, &lexErr):
			u.Diagnostics = append(u.Diagnostics, lexErr.ToDiagnostic())
			u.Err = errors.Wrap(err, errors.CodeLexical, "lexical error")
		case stderrors.As(err, &parseErr):
			u.Diagnostics = append(u.Diagnostics, parseErr.ToDiagnostic())
			u.Err = errors.Wrap(err, errors.CodeSyntax, "syntax error")
		default:
			u.Err = errors.Wrap(err, errors.CodeSyntax, "parse failed")
		}
		return u
	}
	u.Program = prog

	semErrs := semantic.New().Check(prog)
	if len(semErrs) > 0 {
		observability.SemanticErrors.Add(float64(len(semErrs)))
		u.Diagnostics = append(u.Diagnostics, semErrs...)
		u.Err = errors.Newf(errors.CodeSemantic, "%d semantic error(s)", len(semErrs))
	}
	return u
}

// Run checks src and executes it when the check is clean. The returned unit
// is always non-nil so callers can print its diagnostics.
func (d *Driver) Run(ctx context.Context, filename, src string) (*Unit, error) {
	start := time.Now()
	defer func() {
		observability.RunDuration.Observe(time.Since(start).Seconds())
	}()

	runID := uuid.NewString()
	log := d.log.With("run_id", runID, "file", filename)

	u := d.Check(filename, src)
	if !u.OK() {
		log.Debug("front end rejected program", "diagnostics", len(u.Diagnostics))
		return u, u.Err
	}

	log.Info("run started")
	err := interp.New(d.opts.Interp).WithLogger(log).Run(ctx, u.Program)
	if err != nil {
		log.Info("run failed", "error", err, "elapsed", time.Since(start))
		return u, err
	}

	log.Info("run finished", "elapsed", time.Since(start))
	return u, nil
}

// RunFile reads path and runs it.
func (d *Driver) RunFile(ctx context.Context, path string) (*Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		de := &errors.DomainError{Code: errors.CodeIO, Message: "read source", Err: err}
		return nil, de.WithContext(errors.CtxPath, path)
	}
	return d.Run(ctx, path, string(src))
}

func cacheKey(filename, src string) [sha256.Size]byte {
	return sha256.Sum256([]byte(filename + "\x00" + src))
}
