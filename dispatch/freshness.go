package dispatch

import (
	"crypto/md5"
	"fmt"
	"io"

	"github.com/bsmithyman/galoshes/fs"
	"github.com/bsmithyman/galoshes/target"
)

// FreshnessChecker decides whether a file-backed target can be skipped
// because its recorded product is still current.
type FreshnessChecker struct {
	fs   fs.FileSystem
	lock LockFileManager
}

func NewFreshnessChecker(fsys fs.FileSystem, lock LockFileManager) *FreshnessChecker {
	return &FreshnessChecker{fs: fsys, lock: lock}
}

// IsUpToDate reports whether the target's fingerprint matches the one
// recorded by the last successful run and all declared output patterns
// still match something on disk. Phony targets are never up to date.
func (fc *FreshnessChecker) IsUpToDate(t *target.Target) bool {
	if !t.FileBacked() {
		return false
	}

	stored, ok := fc.lock.Fingerprint(t.Name)
	if !ok || stored != fingerprint(t) {
		return false
	}

	return fc.outputsPresent(t)
}

// Record stores the target's fingerprint after a successful run.
func (fc *FreshnessChecker) Record(t *target.Target) {
	fc.lock.SetFingerprint(t.Name, fingerprint(t))
}

func (fc *FreshnessChecker) outputsPresent(t *target.Target) bool {
	for _, pattern := range t.Outputs {
		matches, err := fc.fs.Glob(pattern)
		if err != nil || len(matches) == 0 {
			return false
		}
	}
	return true
}

// fingerprint collapses everything that determines a target's product:
// the command sequence, the content hash of its inputs, and the output
// patterns.
func fingerprint(t *target.Target) string {
	h := md5.New()
	for _, cmd := range t.Cmds {
		io.WriteString(h, cmd)
	}
	io.WriteString(h, t.InputHash)
	for _, pattern := range t.Outputs {
		io.WriteString(h, pattern)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
