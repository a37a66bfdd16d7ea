package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/AnriaW/minipar/internal/config"
	"github.com/AnriaW/minipar/internal/errors"
)

const (
	exitFrontEnd  = 1
	exitExecution = 2
	exitConfig    = 3
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file (default: ./minipar.toml when present)",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "override log.level: debug, info, warn or error",
	}
)

// env is what every command needs once the global flags are processed.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{ctx: ctx, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := newApp(e).Run(os.Args); err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

func newApp(e *env) *cli.App {
	app := cli.NewApp()
	app.Name = "minipar"
	app.Usage = "run and check MiniPar programs"
	app.Version = "0.1.0"
	app.Writer = e.stdout
	app.Flags = []cli.Flag{configFlag, logLevelFlag}
	app.Before = func(c *cli.Context) error {
		return e.setup(c.String(configFlag.Name), c.String(logLevelFlag.Name))
	}
	app.Commands = []cli.Command{
		runCommand(e),
		checkCommand(e),
		tokensCommand(e),
		astCommand(e),
		replCommand(e),
		lspCommand(e),
	}
	return app
}

// setup loads the configuration and installs the default logger.
func (e *env) setup(configPath, logLevel string) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(e.stderr, opts)
	} else {
		handler = slog.NewTextHandler(e.stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	e.cfg = cfg
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	de := &errors.DomainError{
		Code:    errors.CodeConfig,
		Message: fmt.Sprintf("unknown log level %q", s),
	}
	return 0, de.WithContext(errors.CtxKey, "log.level")
}

// errReported marks a failure whose details were already printed as
// diagnostics.
var errReported = stderrors.New("errors reported")

// statusError carries an explicit exit status for failures whose domain
// code alone is ambiguous, such as an input error raised while running.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.status
	}

	code, ok := errors.CodeOf(err)
	if !ok {
		return exitFrontEnd
	}
	switch code {
	case errors.CodeConfig:
		return exitConfig
	case errors.CodeExecution, errors.CodeChannel:
		return exitExecution
	default:
		return exitFrontEnd
	}
}
