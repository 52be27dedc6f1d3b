package dispatch

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// LineHandler receives each line of subprocess output, tagged with the
// owning target's name.
type LineHandler func(target, line string)

// CommandExecutor interface for dependency injection and improved testability
type CommandExecutor interface {
	Execute(target, command string) error
}

// ShellExecutor runs each command in a fresh `sh -c` subprocess that
// inherits the caller's working directory and environment. Output is
// streamed line by line to the Lines handler.
type ShellExecutor struct {
	Shell string
	Lines LineHandler
}

func NewShellExecutor(shell string) *ShellExecutor {
	return &ShellExecutor{
		Shell: shell,
		Lines: PrintLine,
	}
}

// PrintLine is the default handler: "[name] line" on stdout.
func PrintLine(target, line string) {
	fmt.Printf("[%s] %s\n", target, line)
}

func (e *ShellExecutor) Execute(target, command string) error {
	shell := e.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.Command(shell, "-c", command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "failed to open stdout pipe for target %s", target)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrapf(err, "failed to open stderr pipe for target %s", target)
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start command for target %s", target)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go e.scanLines(target, stdout, &wg)
	go e.scanLines(target, stderr, &wg)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &CommandFailedError{
				Target:   target,
				Command:  command,
				ExitCode: exitErr.ExitCode(),
			}
		}
		return errors.Wrapf(err, "failed to run command for target %s", target)
	}

	return nil
}

func (e *ShellExecutor) scanLines(target string, pipe io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		if e.Lines != nil {
			e.Lines(target, scanner.Text())
		}
	}
}
