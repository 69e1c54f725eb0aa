package status

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Status is the terminal outcome of one backup run.
type Status int

const (
	Ok Status = iota
	Warning
	Critical
)

// String returns the lowercase form persisted in the status file.
func (s Status) String() string {
	switch s {
	case Ok:
		return "ok"
	case Warning:
		return "warning"
	default:
		return "critical"
	}
}

// Label returns the uppercase form used in notification subjects.
func (s Status) Label() string {
	return strings.ToUpper(s.String())
}

// CriticalError marks a failure that aborts the whole run: a gating
// precondition, a failed hook, or the dump tool itself. Reason is the short
// description that ends up in the status record.
type CriticalError struct {
	Reason string
	Err    error
}

func (e *CriticalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}

// NewCritical wraps err as a CriticalError with the given reason.
func NewCritical(reason string, err error) *CriticalError {
	return &CriticalError{Reason: reason, Err: err}
}

// Reason extracts the short description from err: the CriticalError reason
// when there is one, the plain error text otherwise.
func Reason(err error) string {
	var ce *CriticalError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return err.Error()
}

// Record is the persisted outcome of the most recent run. Exactly one
// record exists at a time; every run overwrites it.
type Record struct {
	Status      Status
	Description string
	StartedAt   time.Time
	Duration    time.Duration
	SizeBytes   int64
}

// Write persists the record as key=value text, replacing any previous one.
// Duration and size are only present once a dump actually ran.
func (r *Record) Write(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "status=%s\n", r.Status)
	fmt.Fprintf(&b, "description=%s\n", r.Description)
	fmt.Fprintf(&b, "started_at=%s\n", r.StartedAt.Format(time.RFC3339))
	if r.Duration > 0 {
		fmt.Fprintf(&b, "duration=%s\n", r.Duration.Round(time.Millisecond))
	}
	if r.SizeBytes > 0 {
		fmt.Fprintf(&b, "size_bytes=%d\n", r.SizeBytes)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write status file %q: %w", path, err)
	}
	return nil
}

// WarningMarker is the text the dump tool prefixes its warnings with.
const WarningMarker = "WARNING"

// ScanTranscript reports whether the run transcript contains a warning
// marker, which demotes an otherwise successful run to Warning.
func ScanTranscript(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open transcript %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), WarningMarker) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("scan transcript %q: %w", path, err)
	}
	return false, nil
}
