package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rdjoudi/mybak/internal/dumper"
	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/status"
)

// Option overrides a Runner default.
type Option func(*Runner)

// Runner executes the extension scripts of one hook directory. Hooks are
// opaque executables: no arguments, no structured output, their exit status
// is the whole contract.
type Runner struct {
	commandContext dumper.CommandContext
	log            logger.Logger
}

// New returns a hook Runner.
func New(log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		commandContext: exec.CommandContext,
		log:            log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithCommandContext overrides how hook subprocesses are created.
func WithCommandContext(cc dumper.CommandContext) Option {
	return func(r *Runner) {
		if cc != nil {
			r.commandContext = cc
		}
	}
}

// Run executes every executable regular file directly inside dir, one at a
// time, in lexical order by file name. The first nonzero exit is fatal and
// aborts the rest. A missing directory means no hooks.
func (r *Runner) Run(ctx context.Context, phase string, dir string, transcript io.Writer) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read hook directory %q: %w", dir, err)
	}

	// os.ReadDir sorts by file name, which fixes the execution order.
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat hook %q: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		r.log.Info("running hook", "phase", phase, "hook", entry.Name())

		cmd := r.commandContext(ctx, path)
		cmd.Stdout = transcript
		cmd.Stderr = transcript
		if err := cmd.Run(); err != nil {
			return status.NewCritical(
				fmt.Sprintf("%s hook failed", phase),
				fmt.Errorf("hook %q: %w", entry.Name(), err),
			)
		}
	}
	return nil
}
