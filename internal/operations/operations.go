package operations

import (
	"context"
	"os/exec"
	"time"

	"github.com/rdjoudi/mybak/internal/config"
	"github.com/rdjoudi/mybak/internal/dumper"
	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/report"
	"github.com/rdjoudi/mybak/internal/vault"
)

// CredentialsFunc resolves the database user and password for a run.
type CredentialsFunc func(ctx context.Context) (user, password string, err error)

// Option overrides an Operator seam, mainly so tests can substitute the
// external world (clock, subprocesses, PATH, SMTP, credential source).
type Option func(*Operator)

// Operator drives one complete backup run. It holds the immutable
// configuration and the injectable seams; the per-run components are built
// once the run's transcript logger exists.
type Operator struct {
	cfg config.Config
	log logger.Logger

	now            func() time.Time
	commandContext dumper.CommandContext
	lookPath       func(file string) (string, error)
	sendMail       report.SendMailFunc
	creds          CredentialsFunc
}

// NewOperator builds an Operator for the given configuration.
func NewOperator(cfg config.Config, opts ...Option) (*Operator, error) {
	op := &Operator{
		cfg:            cfg,
		log:            logger.NewConsole(),
		now:            time.Now,
		commandContext: exec.CommandContext,
		lookPath:       exec.LookPath,
	}
	for _, opt := range opts {
		opt(op)
	}
	if op.creds == nil {
		op.creds = op.resolveCredentials
	}
	return op, nil
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(op *Operator) {
		if now != nil {
			op.now = now
		}
	}
}

// WithCommandContext overrides how every subprocess of the run is created.
func WithCommandContext(cc dumper.CommandContext) Option {
	return func(op *Operator) {
		if cc != nil {
			op.commandContext = cc
		}
	}
}

// WithLookPath overrides PATH lookup for the environment checks.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(op *Operator) {
		if lookPath != nil {
			op.lookPath = lookPath
		}
	}
}

// WithSendMail overrides the SMTP transport of the outcome notification.
func WithSendMail(fn report.SendMailFunc) Option {
	return func(op *Operator) {
		if fn != nil {
			op.sendMail = fn
		}
	}
}

// WithCredentials overrides the credential source.
func WithCredentials(fn CredentialsFunc) Option {
	return func(op *Operator) {
		if fn != nil {
			op.creds = fn
		}
	}
}

// resolveCredentials is the default credential source: the config file, or
// Vault when the vault section is enabled.
func (op *Operator) resolveCredentials(ctx context.Context) (string, string, error) {
	vc := op.cfg.Vault
	if !vc.Enabled {
		return op.cfg.MySQLUser, op.cfg.MySQLPassword, nil
	}

	client, err := vault.NewClient(ctx,
		vault.WithAddress(vc.Address),
		vault.WithAppRole(vc.RoleID, vc.RoleName),
	)
	if err != nil {
		return "", "", err
	}
	creds, err := client.GetDatabaseCredentials(ctx, vc.KVPath)
	if err != nil {
		return "", "", err
	}
	return creds.Username, creds.Password, nil
}
