package dispatch

import "fmt"

// TargetNotFoundError reports a dispatch request for an undeclared
// target name. No commands run when this is returned.
type TargetNotFoundError struct {
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %q is not declared", e.Name)
}

// CommandFailedError reports a subprocess that exited non-zero. The
// exit code is propagated unchanged to the invoker.
type CommandFailedError struct {
	Target   string
	Command  string
	ExitCode int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("target %s: command %q exited with code %d", e.Target, e.Command, e.ExitCode)
}

// AlreadyPublishedError reports a publish target whose declared version
// has already been uploaded to its artifact index.
type AlreadyPublishedError struct {
	Index   string
	Version string
}

func (e *AlreadyPublishedError) Error() string {
	return fmt.Sprintf("version %s is already published to index %s (use --force to override)", e.Version, e.Index)
}
