// Package cli implements the simplefs command-line front end.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/urfave/cli/v2"

	"github.com/jmgilman/simplefs/errors"
)

// Version is reported by --version. Overridden at link time.
var Version = "development"

// Env is the outside world the application talks to.
type Env struct {
	// FS holds the disk, audit log, backups and configuration file.
	// Defaults to the host filesystem rooted at the working directory.
	FS     billy.Filesystem
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
}

// DefaultEnv talks to the host.
func DefaultEnv() Env {
	return Env{
		FS:     osfs.New(""),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Now:    time.Now,
	}
}

func (e Env) withDefaults() Env {
	d := DefaultEnv()
	if e.FS == nil {
		e.FS = d.FS
	}
	if e.Stdin == nil {
		e.Stdin = d.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = d.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = d.Stderr
	}
	if e.Now == nil {
		e.Now = d.Now
	}
	return e
}

// NewApp builds the application. Each call returns an independent app.
func NewApp(env Env) *cli.App {
	env = env.withDefaults()
	s := &session{env: env}

	return &cli.App{
		Name:      "simplefs",
		Usage:     "manage files inside a single fixed-size disk image",
		Version:   Version,
		Reader:    env.Stdin,
		Writer:    env.Stdout,
		ErrWriter: env.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file (.cue, .yaml, .yml or .json)",
				EnvVars: []string{"SIMPLEFS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "disk",
				Aliases: []string{"d"},
				Usage:   "backing disk image",
				EnvVars: []string{"SIMPLEFS_DISK"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level: debug, info, warn or error",
				EnvVars: []string{"SIMPLEFS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format: text or json",
				EnvVars: []string{"SIMPLEFS_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "audit-log",
				Usage:   "operation log file",
				EnvVars: []string{"SIMPLEFS_AUDIT_LOG"},
			},
			&cli.BoolFlag{
				Name:  "no-audit",
				Usage: "do not write the operation log",
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "write Prometheus metrics to this textfile after the command",
				EnvVars: []string{"SIMPLEFS_METRICS_FILE"},
			},
		},
		Before:         s.setup,
		After:          s.teardown,
		Commands:       s.commands(),
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Run runs the application and returns the process exit status.
func Run(args []string, env Env) int {
	env = env.withDefaults()
	if err := NewApp(env).Run(args); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(env.Stderr, "simplefs: %v\n", err)
		}
		return 1
	}
	return 0
}

// reportedError is a failure already written to stderr as JSON.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reportJSON(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(errors.ToJSON(err)); encErr != nil {
		return err
	}
	return &reportedError{err: err}
}
