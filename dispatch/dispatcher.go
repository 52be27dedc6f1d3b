package dispatch

import (
	"fmt"
	"io"
	"os"

	"github.com/bsmithyman/galoshes/fs"
	"github.com/bsmithyman/galoshes/target"
	"github.com/pkg/errors"
)

// Dispatcher resolves requested target names and executes their command
// sequences strictly in order, one subprocess at a time, dependencies
// first. The first non-zero exit stops the run: remaining commands in
// the failing target and any target not yet reached are not run.
type Dispatcher struct {
	targets     map[string]*target.Target
	dag         DAGManager
	statusMgr   StatusManager
	lockMgr     LockFileManager
	cmdExecutor CommandExecutor
	freshness   *FreshnessChecker
	guard       *PublishGuard
	out         io.Writer

	// Force bypasses the publish guard; NoSkip disables up-to-date
	// skips for file-backed targets.
	Force  bool
	NoSkip bool
}

func NewDispatcher(fsys fs.FileSystem, cmdExecutor CommandExecutor, lockMgr LockFileManager) *Dispatcher {
	return &Dispatcher{
		targets:     make(map[string]*target.Target),
		dag:         NewDAGManager(),
		statusMgr:   NewStatusManager(),
		lockMgr:     lockMgr,
		cmdExecutor: cmdExecutor,
		freshness:   NewFreshnessChecker(fsys, lockMgr),
		guard:       NewPublishGuard(lockMgr),
		out:         os.Stdout,
	}
}

// Initialize loads previous run state. A missing lock file is fine.
func (d *Dispatcher) Initialize() error {
	if err := d.lockMgr.Load(); err != nil {
		return errors.Wrap(err, "failed to load lock file")
	}
	return nil
}

func (d *Dispatcher) AddTarget(t *target.Target) {
	d.targets[t.Name] = t
	d.dag.AddNode(t.Name, t.TargetDeps)
	d.statusMgr.SetStatus(t.Name, StatusQueued)
}

func (d *Dispatcher) StatusManager() StatusManager {
	return d.statusMgr
}

// SetOutput redirects the dispatcher's progress lines, e.g. to discard
// them while the status UI owns the terminal.
func (d *Dispatcher) SetOutput(w io.Writer) {
	d.out = w
}

// Dispatch runs the named targets and their transitive dependencies.
// Unknown names fail before any command runs.
func (d *Dispatcher) Dispatch(names ...string) error {
	for _, name := range names {
		if _, declared := d.targets[name]; !declared {
			return &TargetNotFoundError{Name: name}
		}
	}

	order, err := d.dag.ExecutionOrder(names...)
	if err != nil {
		return err
	}

	var failed error
	for _, name := range order {
		if failed != nil {
			d.statusMgr.Finish(name, StatusSkipped)
			fmt.Fprintf(d.out, "[%s] skipped due to earlier failure\n", name)
			continue
		}
		if err := d.runTarget(name); err != nil {
			failed = err
		}
	}
	if failed != nil {
		return failed
	}

	if err := d.lockMgr.Save(); err != nil {
		return errors.Wrap(err, "failed to save lock file")
	}
	return nil
}

func (d *Dispatcher) runTarget(name string) error {
	t := d.targets[name]
	d.statusMgr.Start(name)

	if !d.Force {
		if err := d.guard.Check(t); err != nil {
			d.statusMgr.Finish(name, StatusFailed)
			fmt.Fprintf(d.out, "[%s] refused: %v\n", name, err)
			return err
		}
	}

	if !d.NoSkip && d.freshness.IsUpToDate(t) {
		d.statusMgr.MarkUpToDate(name)
		fmt.Fprintf(d.out, "[%s] up to date\n", name)
		return nil
	}

	for _, cmd := range t.Cmds {
		if err := d.cmdExecutor.Execute(name, cmd); err != nil {
			d.statusMgr.Finish(name, StatusFailed)
			fmt.Fprintf(d.out, "[%s] failed\n", name)
			return err
		}
	}

	d.statusMgr.Finish(name, StatusCompleted)
	if t.FileBacked() {
		d.freshness.Record(t)
	}
	d.guard.Record(t)
	fmt.Fprintf(d.out, "[%s] completed\n", name)
	return nil
}
