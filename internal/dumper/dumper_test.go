package dumper

import (
	"bytes"
	"context"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/rdjoudi/mybak/internal/logger"
)

func TestOptionsArgs_FixedFlagsAndOrder(t *testing.T) {
	opts := Options{
		User:      "backup",
		Host:      "db1.example.com",
		Threads:   4,
		OutputDir: "/var/backups/mydumper/2026-08-27",
		Extra:     []string{"--kill-long-queries"},
	}
	args := opts.Args()

	for _, want := range []string{
		"--less-locking",
		"--triggers",
		"--events",
		"--routines",
		"--use-savepoints",
		"--verbose=3",
		"--threads=4",
		"--outputdir=/var/backups/mydumper/2026-08-27",
		"--user=backup",
		"--host=db1.example.com",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if slices.Contains(args, "--compress") {
		t.Errorf("compress flag present without compress option: %v", args)
	}
	// Passthrough flags come last so they can override the fixed set.
	if args[len(args)-1] != "--kill-long-queries" {
		t.Errorf("extra flags should be last, got %v", args)
	}
}

func TestOptionsArgs_Compress(t *testing.T) {
	args := Options{User: "backup", Threads: 1, Compress: true}.Args()
	if !slices.Contains(args, "--compress") {
		t.Errorf("compress flag missing: %v", args)
	}
}

func TestCredentialArgs_PasswordOnlyWhenSet(t *testing.T) {
	withPass := Options{User: "backup", Password: "s3cret", Host: "db1"}.CredentialArgs()
	if !slices.Contains(withPass, "--password=s3cret") {
		t.Errorf("password flag missing: %v", withPass)
	}

	noPass := Options{User: "backup", Host: "db1"}.CredentialArgs()
	for _, a := range noPass {
		if strings.HasPrefix(a, "--password") {
			t.Errorf("password flag present without password: %v", noPass)
		}
	}
}

func TestCredentialArgs_SocketPreferredForLocalhost(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		socket string
		want   string
	}{
		{"localhost with socket", "localhost", "/run/mysqld/mysqld.sock", "--socket=/run/mysqld/mysqld.sock"},
		{"loopback with socket", "127.0.0.1", "/run/mysqld/mysqld.sock", "--socket=/run/mysqld/mysqld.sock"},
		{"empty host with socket", "", "/run/mysqld/mysqld.sock", "--socket=/run/mysqld/mysqld.sock"},
		{"remote host with socket", "db1.example.com", "/run/mysqld/mysqld.sock", "--host=db1.example.com"},
		{"localhost without socket", "localhost", "", "--host=localhost"},
		{"empty host without socket", "", "", "--host=localhost"},
	}
	for _, tc := range cases {
		args := Options{User: "backup", Host: tc.host, Socket: tc.socket}.CredentialArgs()
		if !slices.Contains(args, tc.want) {
			t.Errorf("%s: args %v missing %q", tc.name, args, tc.want)
		}
		if strings.HasPrefix(tc.want, "--socket") {
			for _, a := range args {
				if strings.HasPrefix(a, "--host") {
					t.Errorf("%s: host flag should not accompany socket: %v", tc.name, args)
				}
			}
		}
	}
}

func TestProbeArgs(t *testing.T) {
	args := Options{User: "backup", Host: "db1"}.ProbeArgs()
	if args[len(args)-1] != "--execute=SELECT 1;" {
		t.Errorf("probe query missing or not last: %v", args)
	}
}

func TestDump_WritesTranscriptAndReportsExit(t *testing.T) {
	log := logger.NewConsole()

	echo := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo dump output")
	}
	var transcript bytes.Buffer
	m := New(log, WithCommandContext(echo))
	if err := m.Dump(context.Background(), Options{Threads: 1}, &transcript); err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}
	if !strings.Contains(transcript.String(), "dump output") {
		t.Errorf("subprocess output not captured in transcript: %q", transcript.String())
	}

	fail := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "exit 3")
	}
	m = New(log, WithCommandContext(fail))
	if err := m.Dump(context.Background(), Options{Threads: 1}, &transcript); err == nil {
		t.Fatalf("Dump should fail on nonzero exit")
	}
}

func TestVersion(t *testing.T) {
	banner := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'mydumper 0.12.7-3, built against MySQL 8.0'")
	}
	m := New(logger.NewConsole(), WithCommandContext(banner))
	got, err := m.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if !strings.Contains(got, "0.12") {
		t.Errorf("unexpected banner %q", got)
	}
}
