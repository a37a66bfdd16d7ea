package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/driver"
	"github.com/AnriaW/minipar/internal/errors"
	"github.com/AnriaW/minipar/internal/interp"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/lsp"
	"github.com/AnriaW/minipar/internal/observability"
	"github.com/AnriaW/minipar/internal/repl"
	"github.com/AnriaW/minipar/internal/watcher"
)

func runCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "run",
		Usage:     "check a program and execute it when it is clean",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve /metrics and /health on this address while running",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := singleArg(c, "run")
			if err != nil {
				return err
			}

			addr := c.String("metrics-addr")
			if addr == "" {
				addr = e.cfg.Metrics.Addr
			}
			if addr != "" {
				srv := observability.NewServer(addr)
				if err := srv.Start(e.ctx); err != nil {
					return &statusError{status: exitExecution, err: fmt.Errorf("start metrics server: %w", err)}
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Stop(ctx)
				}()
			}

			d, err := e.newDriver()
			if err != nil {
				return err
			}

			u, err := d.RunFile(e.ctx, path)
			if u == nil {
				return err
			}
			e.printDiagnostics(u)
			if !u.OK() {
				return reported(u.Err)
			}
			if err != nil {
				return &statusError{status: exitExecution, err: err}
			}
			return nil
		},
	}
}

func checkCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "check",
		Usage:     "lex, parse and analyze without running",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "watch",
				Usage: "re-check whenever a source changes",
			},
		},
		Action: func(c *cli.Context) error {
			if len(c.Args()) == 0 {
				return fmt.Errorf("usage: minipar check [--watch] FILE...")
			}

			d, err := e.newDriver()
			if err != nil {
				return err
			}

			sources, err := expandSources(c.Args())
			if err != nil {
				return err
			}

			var failed error
			for _, path := range sources {
				if err := e.checkOne(d, path); err != nil && failed == nil {
					failed = err
				}
			}

			if !c.Bool("watch") {
				return failed
			}

			w, err := watcher.NewWatcher(e.cfg.Debounce(), e.cfg.Watch.Exclude, func(paths []string) {
				for _, path := range paths {
					_ = e.checkOne(d, path)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Watch(c.Args()); err != nil {
				return err
			}
			fmt.Fprintln(e.stderr, "watching for changes, press Ctrl-C to stop")

			select {
			case <-e.ctx.Done():
			case <-w.Done():
			}
			return nil
		},
	}
}

// checkOne checks path and prints its diagnostics and a one-line verdict.
func (e *env) checkOne(d *driver.Driver, path string) error {
	u, err := d.CheckFile(path)
	if err != nil {
		fmt.Fprintln(e.stderr, err)
		return err
	}

	e.printDiagnostics(u)
	if !u.OK() {
		fmt.Fprintf(e.stderr, "%s: %v\n", path, u.Err)
		return reported(u.Err)
	}
	fmt.Fprintf(e.stdout, "%s: ok\n", path)
	return nil
}

func tokensCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "tokens",
		Usage:     "print the token stream as a table",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path, err := singleArg(c, "tokens")
			if err != nil {
				return err
			}
			src, err := readSource(path)
			if err != nil {
				return err
			}

			toks, err := lexer.Tokenize(path, src)
			if err != nil {
				var lexErr *lexer.LexerError
				if stderrors.As(err, &lexErr) {
					f := diag.NewFormatter(e.stderr)
					f.AddSource(path, src)
					f.Format(lexErr.ToDiagnostic())
				}
				return reported(errors.Wrap(err, errors.CodeLexical, "lexical error"))
			}

			table := tablewriter.NewWriter(e.stdout)
			table.SetHeader([]string{"Line", "Column", "Type", "Literal"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			for _, tok := range toks {
				lit := tok.Literal
				if tok.Type == lexer.STRING {
					lit = strconv.Quote(lit)
				}
				table.Append([]string{
					strconv.Itoa(tok.Span.Line),
					strconv.Itoa(tok.Span.Column),
					string(tok.Type),
					lit,
				})
			}
			table.Render()
			return nil
		},
	}
}

func astCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "ast",
		Usage:     "print the syntax tree",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "raw",
				Usage: "dump the Go values instead of the indented tree",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := singleArg(c, "ast")
			if err != nil {
				return err
			}
			d, err := e.newDriver()
			if err != nil {
				return err
			}
			u, err := d.CheckFile(path)
			if err != nil {
				return err
			}

			e.printDiagnostics(u)
			if u.Program == nil {
				return reported(u.Err)
			}

			if c.Bool("raw") {
				dumper := spew.ConfigState{
					Indent:                  "  ",
					DisablePointerAddresses: true,
					DisableCapacities:       true,
				}
				dumper.Fdump(e.stdout, u.Program)
			} else if err := ast.Fprint(e.stdout, u.Program); err != nil {
				return err
			}

			if !u.OK() {
				return reported(u.Err)
			}
			return nil
		},
	}
}

func replCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "repl",
		Usage: "start an interactive shell",
		Action: func(c *cli.Context) error {
			d, err := e.newDriver()
			if err != nil {
				return err
			}
			err = repl.New(d, e.cfg.REPL.HistoryFile, e.stdout, e.stderr).Run(e.ctx)
			if stderrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func lspCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "lsp",
		Usage: "serve the language server protocol over stdio",
		Action: func(c *cli.Context) error {
			d, err := e.newDriver()
			if err != nil {
				return err
			}
			return lsp.NewServer(d, e.stdin, e.stdout).Run(e.ctx)
		},
	}
}

func (e *env) newDriver() (*driver.Driver, error) {
	return driver.New(driver.Options{
		Interp: interp.Options{
			Stdout:      e.stdout,
			Stderr:      e.stderr,
			Stdin:       e.stdin,
			Channel:     e.cfg.ChannelOptions(),
			MaxParallel: e.cfg.Runtime.MaxParallel,
		},
	})
}

func (e *env) printDiagnostics(u *driver.Unit) {
	if len(u.Diagnostics) == 0 {
		return
	}
	f := diag.NewFormatter(e.stderr)
	f.AddSource(u.Filename, u.Source)
	f.FormatAll(u.Diagnostics)
}

// reported wraps err so main exits with its code without printing it again.
func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

func singleArg(c *cli.Context, cmd string) (string, error) {
	if len(c.Args()) != 1 {
		return "", fmt.Errorf("usage: minipar %s FILE", cmd)
	}
	return c.Args().First(), nil
}

func readSource(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		de := &errors.DomainError{Code: errors.CodeIO, Message: "read source", Err: err}
		return "", de.WithContext(errors.CtxPath, path)
	}
	return string(src), nil
}

// expandSources replaces each directory argument with the .mp files below it.
func expandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == watcher.SourceExt {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
