package dispatch

import (
	"errors"
	"io"
	"testing"

	"github.com/bsmithyman/galoshes/fs/mock"
	"github.com/bsmithyman/galoshes/target"
)

// MockCommandExecutor implements the CommandExecutor interface for testing
type MockCommandExecutor struct {
	ExecuteFunc func(target, command string) error
	Executed    []string
}

func (m *MockCommandExecutor) Execute(target, command string) error {
	m.Executed = append(m.Executed, command)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(target, command)
	}
	return nil
}

type MockLockFileManager struct {
	LoadFunc             func() error
	SaveFunc             func() error
	FingerprintFunc      func(string) (string, bool)
	SetFingerprintFunc   func(string, string)
	PublishedVersionFunc func(string) (string, bool)
	RecordPublishedFunc  func(string, string)
}

func (m *MockLockFileManager) Load() error {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return nil
}

func (m *MockLockFileManager) Save() error {
	if m.SaveFunc != nil {
		return m.SaveFunc()
	}
	return nil
}

func (m *MockLockFileManager) Fingerprint(name string) (string, bool) {
	if m.FingerprintFunc != nil {
		return m.FingerprintFunc(name)
	}
	return "", false
}

func (m *MockLockFileManager) SetFingerprint(name, key string) {
	if m.SetFingerprintFunc != nil {
		m.SetFingerprintFunc(name, key)
	}
}

func (m *MockLockFileManager) PublishedVersion(index string) (string, bool) {
	if m.PublishedVersionFunc != nil {
		return m.PublishedVersionFunc(index)
	}
	return "", false
}

func (m *MockLockFileManager) RecordPublished(index, version string) {
	if m.RecordPublishedFunc != nil {
		m.RecordPublishedFunc(index, version)
	}
}

func newTestDispatcher(cmdExecutor *MockCommandExecutor, lockMgr *MockLockFileManager) *Dispatcher {
	d := NewDispatcher(mock.NewMockFileSystem(), cmdExecutor, lockMgr)
	d.SetOutput(io.Discard)
	return d
}

func TestDispatcher_UnknownTarget(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{}
	d := newTestDispatcher(cmdExecutor, &MockLockFileManager{})

	d.AddTarget(&target.Target{Name: "test", Cmds: []string{"true"}, Phony: true})

	err := d.Dispatch("nope")
	if err == nil {
		t.Fatal("Dispatch should fail for an undeclared target")
	}

	var notFound *TargetNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected TargetNotFoundError, got %v", err)
	}
	if notFound.Name != "nope" {
		t.Errorf("Expected name 'nope', got %q", notFound.Name)
	}
	if len(cmdExecutor.Executed) != 0 {
		t.Errorf("No commands should run for an unknown target, ran %v", cmdExecutor.Executed)
	}
}

func TestDispatcher_RunsCommandsInDeclaredOrder(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{}
	saveCalled := false
	lockMgr := &MockLockFileManager{
		SaveFunc: func() error {
			saveCalled = true
			return nil
		},
	}
	d := newTestDispatcher(cmdExecutor, lockMgr)

	d.AddTarget(&target.Target{
		Name:  "build",
		Cmds:  []string{"first", "second", "third"},
		Phony: true,
	})

	if err := d.Dispatch("build"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	expected := []string{"first", "second", "third"}
	if len(cmdExecutor.Executed) != len(expected) {
		t.Fatalf("Expected %d commands, ran %v", len(expected), cmdExecutor.Executed)
	}
	for i, cmd := range expected {
		if cmdExecutor.Executed[i] != cmd {
			t.Errorf("Command %d: expected %q, got %q", i, cmd, cmdExecutor.Executed[i])
		}
	}
	if !saveCalled {
		t.Error("Lock file should be saved after a successful run")
	}

	status, ok := d.StatusManager().Get("build")
	if !ok || status.Status != StatusCompleted {
		t.Errorf("Expected status Completed, got %v", status.Status)
	}
}

func TestDispatcher_StopsAtFirstFailingCommand(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{
		ExecuteFunc: func(targetName, command string) error {
			if command == "second" {
				return &CommandFailedError{Target: targetName, Command: command, ExitCode: 3}
			}
			return nil
		},
	}
	saveCalled := false
	lockMgr := &MockLockFileManager{
		SaveFunc: func() error {
			saveCalled = true
			return nil
		},
	}
	d := newTestDispatcher(cmdExecutor, lockMgr)

	d.AddTarget(&target.Target{
		Name:  "build",
		Cmds:  []string{"first", "second", "third"},
		Phony: true,
	})

	err := d.Dispatch("build")
	if err == nil {
		t.Fatal("Dispatch should fail when a command exits non-zero")
	}

	var cmdErr *CommandFailedError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Expected CommandFailedError, got %v", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", cmdErr.ExitCode)
	}

	if len(cmdExecutor.Executed) != 2 {
		t.Errorf("Commands after the failure must not run, ran %v", cmdExecutor.Executed)
	}
	if saveCalled {
		t.Error("Lock file must not be saved after a failed run")
	}

	status, _ := d.StatusManager().Get("build")
	if status.Status != StatusFailed {
		t.Errorf("Expected status Failed, got %v", status.Status)
	}
}

func TestDispatcher_SkipsTargetsAfterFailure(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{
		ExecuteFunc: func(targetName, command string) error {
			if targetName == "first" {
				return &CommandFailedError{Target: targetName, Command: command, ExitCode: 1}
			}
			return nil
		},
	}
	d := newTestDispatcher(cmdExecutor, &MockLockFileManager{})

	d.AddTarget(&target.Target{Name: "first", Cmds: []string{"fail"}, Phony: true})
	d.AddTarget(&target.Target{Name: "second", Cmds: []string{"ok"}, Phony: true})

	if err := d.Dispatch("first", "second"); err == nil {
		t.Fatal("Dispatch should propagate the failure")
	}

	if len(cmdExecutor.Executed) != 1 {
		t.Errorf("Unreached targets must not run, ran %v", cmdExecutor.Executed)
	}

	status, _ := d.StatusManager().Get("second")
	if status.Status != StatusSkipped {
		t.Errorf("Expected status Skipped for unreached target, got %v", status.Status)
	}
}

func TestDispatcher_RunsDependenciesFirst(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{}
	d := newTestDispatcher(cmdExecutor, &MockLockFileManager{})

	d.AddTarget(&target.Target{Name: "app", Cmds: []string{"build app"}, TargetDeps: []string{"gen"}, Phony: true})
	d.AddTarget(&target.Target{Name: "gen", Cmds: []string{"generate"}, Phony: true})

	if err := d.Dispatch("app"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(cmdExecutor.Executed) != 2 || cmdExecutor.Executed[0] != "generate" || cmdExecutor.Executed[1] != "build app" {
		t.Errorf("Expected dependency to run first, ran %v", cmdExecutor.Executed)
	}
}

func TestDispatcher_PublishGuardBlocksRepeatUpload(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{}
	recorded := make(map[string]string)
	lockMgr := &MockLockFileManager{
		PublishedVersionFunc: func(index string) (string, bool) {
			if index == "pypi" {
				return "0.1.4", true
			}
			return "", false
		},
		RecordPublishedFunc: func(index, version string) {
			recorded[index] = version
		},
	}
	d := newTestDispatcher(cmdExecutor, lockMgr)

	d.AddTarget(&target.Target{
		Name:    "publish",
		Cmds:    []string{"upload -r pypi"},
		Phony:   true,
		Index:   "pypi",
		Version: "0.1.4",
	})
	d.AddTarget(&target.Target{
		Name:    "testpublish",
		Cmds:    []string{"upload -r pypitest"},
		Phony:   true,
		Index:   "pypitest",
		Version: "0.1.4",
	})

	err := d.Dispatch("publish")
	var already *AlreadyPublishedError
	if !errors.As(err, &already) {
		t.Fatalf("Expected AlreadyPublishedError, got %v", err)
	}
	if len(cmdExecutor.Executed) != 0 {
		t.Errorf("Guarded target must not run, ran %v", cmdExecutor.Executed)
	}

	// The staging index is tracked independently.
	if err := d.Dispatch("testpublish"); err != nil {
		t.Fatalf("Staging publish should not be blocked: %v", err)
	}
	if recorded["pypitest"] != "0.1.4" {
		t.Errorf("Expected staging publish to be recorded, got %v", recorded)
	}

	// Force bypasses the guard.
	d.Force = true
	if err := d.Dispatch("publish"); err != nil {
		t.Fatalf("Forced publish failed: %v", err)
	}
	if recorded["pypi"] != "0.1.4" {
		t.Errorf("Expected forced publish to be recorded, got %v", recorded)
	}
}

func TestDispatcher_UpToDateSkip(t *testing.T) {
	fsys := mock.NewMockFileSystem()
	fsys.Files["out/artifact.tar.gz"] = []byte("artifact")

	tgt := &target.Target{
		Name:      "sdist",
		Cmds:      []string{"build sdist"},
		Outputs:   []string{"out/*.tar.gz"},
		InputHash: "abc",
	}

	cmdExecutor := &MockCommandExecutor{}
	lockMgr := &MockLockFileManager{
		FingerprintFunc: func(name string) (string, bool) {
			return fingerprint(tgt), true
		},
	}

	d := NewDispatcher(fsys, cmdExecutor, lockMgr)
	d.SetOutput(io.Discard)
	d.AddTarget(tgt)

	if err := d.Dispatch("sdist"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(cmdExecutor.Executed) != 0 {
		t.Errorf("Up-to-date target must not run, ran %v", cmdExecutor.Executed)
	}

	status, _ := d.StatusManager().Get("sdist")
	if status.Status != StatusCompleted || !status.UpToDate {
		t.Errorf("Expected Completed/up-to-date, got %+v", status)
	}

	// --no-skip forces the run anyway.
	d.NoSkip = true
	if err := d.Dispatch("sdist"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(cmdExecutor.Executed) != 1 {
		t.Errorf("Expected the command to run with NoSkip, ran %v", cmdExecutor.Executed)
	}
}

func TestDispatcher_PhonyTargetRunsEveryTime(t *testing.T) {
	cmdExecutor := &MockCommandExecutor{}
	d := newTestDispatcher(cmdExecutor, &MockLockFileManager{})

	d.AddTarget(&target.Target{Name: "test", Cmds: []string{"run tests"}, Phony: true})

	for i := 0; i < 3; i++ {
		if err := d.Dispatch("test"); err != nil {
			t.Fatalf("Dispatch %d failed: %v", i, err)
		}
	}
	if len(cmdExecutor.Executed) != 3 {
		t.Errorf("A phony target must run on every dispatch, ran %v", cmdExecutor.Executed)
	}
}

func TestDispatcher_Initialize(t *testing.T) {
	lockMgr := &MockLockFileManager{
		LoadFunc: func() error { return nil },
	}
	d := newTestDispatcher(&MockCommandExecutor{}, lockMgr)

	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	lockMgr.LoadFunc = func() error { return errors.New("lock file error") }
	if err := d.Initialize(); err == nil {
		t.Error("Initialize should propagate lock file errors")
	}
}
