// Package cli implements the waymark command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/internal/audit"
	"github.com/mesh-intelligence/waymark/internal/index"
	"github.com/mesh-intelligence/waymark/internal/paths"
	"github.com/mesh-intelligence/waymark/internal/tracker"
	"github.com/mesh-intelligence/waymark/pkg/types"
	"github.com/mesh-intelligence/waymark/pkg/waymark"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries an explicit exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// noSetup names commands that read no config and touch no files.
var noSetup = map[string]bool{
	"version":    true,
	"route":      true,
	"help":       true,
	"completion": true,
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir    string
	dataDir      string
	artifactRoot string
	owner        string
	jsonMode     bool
	verbose      bool
}

// app is the state shared by one invocation's commands.
type app struct {
	flags  rootFlags
	stdout io.Writer
	stderr io.Writer

	configDir string
	cfg       types.Config
	owner     string
	logger    *slog.Logger

	store *index.Store
	audit *audit.Log
}

// NewRootCmd creates the top-level "waymark" command with global flags and
// all subcommands registered. Output goes to stdout; logs and errors go to
// stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:     "waymark",
		Short:   "Track plans, specs, and execute logs with stable identifiers",
		Long:    "Waymark turns short instructions into plan, spec, and execute-log documents,\ngives each a sortable identifier and a readable reference, and keeps them in\nan append-only index.",
		Version: waymark.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noSetup[cmd.Name()] {
				a.logger = newLogger(a.stderr, "", a.flags.verbose)
				return nil
			}
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.waymark)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.waymark/data)")
	pf.StringVar(&a.flags.artifactRoot, "artifact-root", "", "artifact directory (default: ai_docs)")
	pf.StringVar(&a.flags.owner, "owner", "", "owner recorded on new artifacts")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newDoCmd(a),
		newRouteCmd(a),
		newPlanCmd(a),
		newSpecCmd(a),
		newExecCmd(a),
		newReadyCmd(a),
		newShowCmd(a),
		newFindCmd(a),
		newListCmd(a),
		newTreeCmd(a),
		newRebuildCmd(a),
		newValidateCmd(a),
		newLogCmd(a),
	)
	return root
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "waymark:", err)
	return exitCode(err)
}

// exitCode maps an error to 1 for bad input and 2 for failures of the
// index, the clock, or the filesystem.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var (
		we *types.IndexWriteError
		pe *fs.PathError
	)
	switch {
	case errors.As(err, &we),
		errors.As(err, &pe),
		errors.Is(err, types.ErrClock),
		errors.Is(err, types.ErrLockTimeout),
		errors.Is(err, types.ErrRefExhausted):
		return exitSysError
	}
	return exitUserError
}

// setup resolves directories and config and builds the logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return &exitError{code: exitSysError, err: fmt.Errorf("resolve config dir: %w", err)}
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return &exitError{code: exitSysError, err: err}
	}

	cfg, err := configFromViper(v)
	if err != nil {
		return &exitError{code: exitUserError, err: err}
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return &exitError{code: exitSysError, err: fmt.Errorf("resolve data dir: %w", err)}
	}
	if a.flags.artifactRoot != "" {
		cfg.ArtifactRoot = a.flags.artifactRoot
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitUserError, err: fmt.Errorf("config %s: %w", configDir, err)}
	}

	a.configDir = configDir
	a.cfg = cfg
	a.owner = paths.ResolveOwner(a.flags.owner, v.GetString(cfgKeyOwner))
	a.logger = newLogger(a.stderr, v.GetString(cfgKeyLogLevel), a.flags.verbose)
	return nil
}

func (a *app) index() (*index.Store, error) {
	if a.store == nil {
		s, err := index.Open(a.cfg, a.logger)
		if err != nil {
			return nil, &exitError{code: exitSysError, err: err}
		}
		a.store = s
	}
	return a.store, nil
}

func (a *app) auditLog() (*audit.Log, error) {
	if a.audit == nil {
		l, err := audit.Open(a.cfg, a.logger)
		if err != nil {
			return nil, &exitError{code: exitSysError, err: err}
		}
		a.audit = l
	}
	return a.audit, nil
}

func (a *app) tracker() (*tracker.Tracker, error) {
	store, err := a.index()
	if err != nil {
		return nil, err
	}
	log, err := a.auditLog()
	if err != nil {
		return nil, err
	}
	return tracker.New(a.cfg, store, log,
		tracker.WithLogger(a.logger),
		tracker.WithDefaultOwner(a.owner),
	), nil
}
