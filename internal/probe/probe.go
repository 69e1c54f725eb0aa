package probe

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rdjoudi/mybak/internal/dumper"
	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/status"
)

// ExpectedRootName is the leaf the backup root must end in. Pointing the
// tool at an arbitrary directory and letting retention delete inside it is
// the one operator mistake this guards against.
const ExpectedRootName = "mydumper"

// SupportedVersions are the dump tool major versions this runner is known
// to drive. The check is a substring match against the version banner.
var SupportedVersions = []string{"0.9", "0.10", "0.11", "0.12"}

// Option overrides a Prober default.
type Option func(*Prober)

// Prober verifies the gating preconditions of a run: root directory name,
// presence of the client and dump binaries, dump tool version, and database
// connectivity. Every failure is critical and aborts the run unretried.
type Prober struct {
	clientBinary   string
	dump           *dumper.Mydumper
	lookPath       func(file string) (string, error)
	commandContext dumper.CommandContext
	log            logger.Logger
}

// New returns a Prober for the given dump tool runner.
func New(log logger.Logger, dump *dumper.Mydumper, opts ...Option) *Prober {
	p := &Prober{
		clientBinary:   "mysql",
		dump:           dump,
		lookPath:       exec.LookPath,
		commandContext: exec.CommandContext,
		log:            log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithClientBinary overrides the database client binary name.
func WithClientBinary(binary string) Option {
	return func(p *Prober) {
		if binary != "" {
			p.clientBinary = binary
		}
	}
}

// WithLookPath overrides PATH lookup.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(p *Prober) {
		if lookPath != nil {
			p.lookPath = lookPath
		}
	}
}

// WithCommandContext overrides how the connectivity probe subprocess is
// created.
func WithCommandContext(cc dumper.CommandContext) Option {
	return func(p *Prober) {
		if cc != nil {
			p.commandContext = cc
		}
	}
}

// Probe runs all gate checks in order and returns the first failure.
func (p *Prober) Probe(ctx context.Context, rootDir string, opts dumper.Options, transcript io.Writer) error {
	if filepath.Base(filepath.Clean(rootDir)) != ExpectedRootName {
		return status.NewCritical("misconfigured root", nil)
	}
	if _, err := p.lookPath(p.clientBinary); err != nil {
		return status.NewCritical("client missing", err)
	}
	if _, err := p.lookPath(p.dump.Binary()); err != nil {
		return status.NewCritical("dump tool missing", err)
	}

	banner, err := p.dump.Version(ctx)
	if err != nil {
		return status.NewCritical("unsupported dump tool version", err)
	}
	if !versionSupported(banner) {
		return status.NewCritical("unsupported dump tool version", nil)
	}

	cmd := p.commandContext(ctx, p.clientBinary, opts.ProbeArgs()...)
	cmd.Stdout = transcript
	cmd.Stderr = transcript
	if err := cmd.Run(); err != nil {
		return status.NewCritical("bad credentials or host", err)
	}

	p.log.Info("environment checks passed", "dump_tool", banner)
	return nil
}

func versionSupported(banner string) bool {
	for _, v := range SupportedVersions {
		if strings.Contains(banner, v) {
			return true
		}
	}
	return false
}
