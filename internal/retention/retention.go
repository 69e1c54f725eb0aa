package retention

import (
	"fmt"
	"os"
	"sort"

	"github.com/rdjoudi/mybak/internal/logger"
	"github.com/rdjoudi/mybak/internal/snapshot"
)

// Engine evicts the oldest snapshots until at most keep remain.
type Engine struct {
	keep int
	log  logger.Logger
}

// New returns a retention Engine keeping the newest keep snapshots.
// keep == 0 disables the policy entirely.
func New(keep int, log logger.Logger) *Engine {
	return &Engine{keep: keep, log: log}
}

// Apply enforces the policy under rootDir. The listing is scanned and
// sorted once: runs never overlap by contract, so nothing can mutate the
// root while we delete. Oldest marker time goes first; ties keep the walk
// order, which is lexical and therefore stable.
func (e *Engine) Apply(rootDir string) error {
	if e.keep == 0 {
		return nil
	}

	snaps, err := snapshot.Scan(rootDir)
	if err != nil {
		return err
	}
	if len(snaps) <= e.keep {
		return nil
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].MarkerTime.Before(snaps[j].MarkerTime)
	})

	for _, s := range snaps[:len(snaps)-e.keep] {
		if err := os.RemoveAll(s.Dir); err != nil {
			return fmt.Errorf("evict snapshot %q: %w", s.Dir, err)
		}
		e.log.Info("snapshot evicted", "dir", s.Dir, "marker_time", s.MarkerTime)
	}
	return nil
}
