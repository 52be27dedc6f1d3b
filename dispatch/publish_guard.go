package dispatch

import (
	"github.com/Masterminds/semver/v3"
	"github.com/bsmithyman/galoshes/target"
	"github.com/pkg/errors"
)

// PublishGuard refuses to re-dispatch a publish target whose declared
// version has already been uploaded to its index. Indices are tracked
// independently, so a version published to the staging index does not
// block the production index.
type PublishGuard struct {
	lock LockFileManager
}

func NewPublishGuard(lock LockFileManager) *PublishGuard {
	return &PublishGuard{lock: lock}
}

func (g *PublishGuard) Check(t *target.Target) error {
	if !t.Publishes() {
		return nil
	}

	next, err := semver.NewVersion(t.Version)
	if err != nil {
		return errors.Wrapf(err, "target %s declares invalid version %q", t.Name, t.Version)
	}

	recorded, ok := g.lock.PublishedVersion(t.Index)
	if !ok {
		return nil
	}

	prev, err := semver.NewVersion(recorded)
	if err != nil {
		// An unparseable record can't be compared; don't block the run.
		return nil
	}

	if !next.GreaterThan(prev) {
		return &AlreadyPublishedError{Index: t.Index, Version: t.Version}
	}

	return nil
}

// Record stores the published version after the upload succeeds.
func (g *PublishGuard) Record(t *target.Target) {
	if t.Publishes() {
		g.lock.RecordPublished(t.Index, t.Version)
	}
}
