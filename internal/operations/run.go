package operations

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rdjoudi/mybak/internal/dumper"
	"github.com/rdjoudi/mybak/internal/hooks"
	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/probe"
	"github.com/rdjoudi/mybak/internal/report"
	"github.com/rdjoudi/mybak/internal/retention"
	"github.com/rdjoudi/mybak/internal/snapshot"
	"github.com/rdjoudi/mybak/internal/status"
)

// Run executes one full backup cycle and returns the process exit code:
// 0 for ok/warning or a disabled no-op, 1 for any critical failure, 255
// when the trap of last resort caught something unhandled. Every terminal
// outcome except the disabled no-op writes the status record and attempts
// a notification before returning.
func (op *Operator) Run(ctx context.Context) (code int) {
	if !op.cfg.Enabled {
		op.log.Info("backups disabled by configuration, nothing to do")
		return 0
	}

	run := snapshot.NewRun(op.now(), op.cfg.BackupRootDir, op.cfg.LogDir, op.cfg.BackupDirFormat)

	if err := snapshot.EnsureDirectoryExist(op.cfg.LogDir); err != nil {
		op.report(op.log, status.Record{
			Status:      status.Critical,
			Description: status.Reason(err),
			StartedAt:   run.Timestamp,
		}, "")
		return 1
	}
	rl, err := logger.NewRun(run.LogFile)
	if err != nil {
		op.report(op.log, status.Record{
			Status:      status.Critical,
			Description: status.Reason(err),
			StartedAt:   run.Timestamp,
		}, "")
		return 1
	}
	defer rl.Close()

	// Trap of last resort: whatever slips through still leaves a critical
	// record and a notification behind before the process dies.
	defer func() {
		if r := recover(); r != nil {
			rl.Error("run aborted", "panic", fmt.Sprint(r))
			op.report(rl, status.Record{
				Status:      status.Critical,
				Description: fmt.Sprintf("aborted: %v", r),
				StartedAt:   run.Timestamp,
			}, run.LogFile)
			code = 255
		}
	}()

	rec, err := op.execute(ctx, run, rl)
	if err != nil {
		rl.Error("backup run failed", "error", err.Error())
		op.report(rl, status.Record{
			Status:      status.Critical,
			Description: status.Reason(err),
			StartedAt:   run.Timestamp,
		}, run.LogFile)
		return 1
	}

	op.report(rl, rec, run.LogFile)
	return 0
}

// execute is the linear stage sequence. The first error short-circuits to
// the caller's failure path.
func (op *Operator) execute(ctx context.Context, run snapshot.Run, rl *logger.RunLogger) (status.Record, error) {
	cfg := op.cfg
	rl.Info("backup run started", "backup_dir", run.BackupDir, "transcript", run.LogFile)

	user, password, err := op.creds(ctx)
	if err != nil {
		return status.Record{}, status.NewCritical("credentials unavailable", err)
	}
	dumpOpts := dumper.Options{
		User:      user,
		Password:  password,
		Host:      cfg.MySQLHost,
		Socket:    cfg.MySQLSocket,
		Threads:   cfg.Threads,
		Compress:  cfg.Compress,
		OutputDir: run.BackupDir,
		Extra:     cfg.MydumperOpts,
	}

	dump := dumper.New(rl, dumper.WithCommandContext(op.commandContext))
	prober := probe.New(rl, dump,
		probe.WithLookPath(op.lookPath),
		probe.WithCommandContext(op.commandContext),
	)
	hookRunner := hooks.New(rl, hooks.WithCommandContext(op.commandContext))
	keeper := retention.New(cfg.Keep, rl)

	if err := prober.Probe(ctx, cfg.BackupRootDir, dumpOpts, rl.Transcript()); err != nil {
		return status.Record{}, err
	}
	if err := snapshot.Prepare(run.BackupDir, cfg.LogDir, cfg.PreDir, cfg.PostDir); err != nil {
		return status.Record{}, err
	}
	if err := hookRunner.Run(ctx, "pre", cfg.PreDir, rl.Transcript()); err != nil {
		return status.Record{}, err
	}
	if err := snapshot.RemoveStale(run.BackupDir); err != nil {
		return status.Record{}, err
	}

	dumpStart := time.Now()
	if err := dump.Dump(ctx, dumpOpts, rl.Transcript()); err != nil {
		// The partial directory must never be seen by retention counting
		// or the latest pointer.
		if rmErr := os.RemoveAll(run.BackupDir); rmErr != nil {
			rl.Error("partial snapshot cleanup failed", "error", rmErr.Error())
		}
		return status.Record{}, status.NewCritical("dump tool failed", err)
	}
	duration := time.Since(dumpStart)

	if err := snapshot.PublishLatest(cfg.BackupRootDir, run.BackupDir); err != nil {
		return status.Record{}, err
	}
	if err := hookRunner.Run(ctx, "post", cfg.PostDir, rl.Transcript()); err != nil {
		return status.Record{}, err
	}
	if err := keeper.Apply(cfg.BackupRootDir); err != nil {
		return status.Record{}, err
	}

	if cfg.CompressLogs {
		if err := CompressOldTranscripts(cfg.LogDir, run.LogFile); err != nil {
			// Housekeeping only; never fails the run.
			rl.Error("transcript compression failed", "error", err.Error())
		}
	}

	size, err := snapshot.DirSize(run.BackupDir)
	if err != nil {
		rl.Error("snapshot size unavailable", "error", err.Error())
	}

	rl.Sync()
	warned, err := status.ScanTranscript(run.LogFile)
	if err != nil {
		return status.Record{}, err
	}

	rec := status.Record{
		Status:      status.Ok,
		Description: "backup completed",
		StartedAt:   run.Timestamp,
		Duration:    duration,
		SizeBytes:   size,
	}
	if warned {
		rec.Status = status.Warning
		rec.Description = "backup completed with warnings"
	}
	rl.Info("backup run finished",
		"status", rec.Status.String(),
		"duration", duration.String(),
		"size_bytes", size,
	)
	return rec, nil
}

// report persists the status record and attempts the notification. Both are
// best effort: the run's outcome is already decided here.
func (op *Operator) report(log logger.Logger, rec status.Record, transcriptPath string) {
	if err := rec.Write(op.cfg.StatusFile); err != nil {
		log.Error("status record write failed", "error", err.Error())
	}

	var body []byte
	if transcriptPath != "" {
		if data, err := os.ReadFile(transcriptPath); err == nil {
			body = data
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	subject := fmt.Sprintf("%s: backup %s", hostname, rec.Status.Label())

	mailer := report.New(op.cfg.SMTPAddr, op.cfg.MailFrom, op.cfg.MailRcpts, log,
		report.WithSendMail(op.sendMail))
	if err := mailer.Send(subject, body); err != nil {
		log.Error("notification failed", "error", err.Error())
	}
}
