package dumper

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rdjoudi/mybak/internal/logger"
)

// CommandContext is the exec.CommandContext signature, injectable so tests
// can substitute the real binaries.
type CommandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Options are the effective parameters of one mydumper invocation, composed
// from configuration, resolved credentials and the fixed flag set.
type Options struct {
	User      string
	Password  string
	Host      string
	Socket    string
	Threads   int
	Compress  bool
	OutputDir string
	Extra     []string
}

// useSocket reports whether the socket path should replace the host flag:
// only for local connections, and only when a socket is configured.
func (o Options) useSocket() bool {
	if o.Socket == "" {
		return false
	}
	switch o.Host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// CredentialArgs returns the connection flags shared by mydumper and the
// mysql client probe. The password flag appears only when a password is
// configured.
func (o Options) CredentialArgs() []string {
	args := []string{"--user=" + o.User}
	if o.Password != "" {
		args = append(args, "--password="+o.Password)
	}
	if o.useSocket() {
		args = append(args, "--socket="+o.Socket)
	} else {
		host := o.Host
		if host == "" {
			host = "localhost"
		}
		args = append(args, "--host="+host)
	}
	return args
}

// Args returns the full mydumper argument list: fixed flags, output
// directory, thread count, optional compression, credentials, then any
// configured passthrough flags.
func (o Options) Args() []string {
	args := []string{
		"--less-locking",
		"--triggers",
		"--events",
		"--routines",
		"--use-savepoints",
		"--verbose=3",
		"--threads=" + strconv.Itoa(o.Threads),
		"--outputdir=" + o.OutputDir,
	}
	if o.Compress {
		args = append(args, "--compress")
	}
	args = append(args, o.CredentialArgs()...)
	args = append(args, o.Extra...)
	return args
}

// ProbeArgs returns the mysql client arguments for the connectivity gate:
// the shared credential flags plus a trivial read-only query.
func (o Options) ProbeArgs() []string {
	return append(o.CredentialArgs(), "--execute=SELECT 1;")
}

// MydumperOption overrides a Mydumper default.
type MydumperOption func(*Mydumper)

// Mydumper invokes the external dump tool as one blocking subprocess call.
type Mydumper struct {
	binary         string
	commandContext CommandContext
	log            logger.Logger
}

// New returns a Mydumper runner with the given overrides applied.
func New(log logger.Logger, opts ...MydumperOption) *Mydumper {
	m := &Mydumper{
		binary:         "mydumper",
		commandContext: exec.CommandContext,
		log:            log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithBinary overrides the dump tool binary name.
func WithBinary(binary string) MydumperOption {
	return func(m *Mydumper) {
		if binary != "" {
			m.binary = binary
		}
	}
}

// WithCommandContext overrides how subprocesses are created.
func WithCommandContext(cc CommandContext) MydumperOption {
	return func(m *Mydumper) {
		if cc != nil {
			m.commandContext = cc
		}
	}
}

// Binary returns the dump tool binary name.
func (m *Mydumper) Binary() string { return m.binary }

// Dump runs the dump tool once, writing its output into the run transcript.
// A nonzero exit is returned as an error; cleanup of the partial output
// directory is the caller's job.
func (m *Mydumper) Dump(ctx context.Context, opts Options, transcript io.Writer) error {
	cmd := m.commandContext(ctx, m.binary, opts.Args()...)
	cmd.Stdout = transcript
	cmd.Stderr = transcript

	m.log.Info("dump started",
		"tool", m.binary,
		"outputdir", opts.OutputDir,
		"threads", opts.Threads,
		"compress", opts.Compress,
	)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", m.binary, err)
	}
	m.log.Info("dump completed", "duration", time.Since(start).String())
	return nil
}

// Version returns the dump tool's self-reported version banner.
func (m *Mydumper) Version(ctx context.Context) (string, error) {
	out, err := m.commandContext(ctx, m.binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", m.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}
