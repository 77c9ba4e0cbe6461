package fetch

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// Command is a fully resolved CLI invocation.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Runner launches a child process and blocks until it exits, streaming the
// process output to stdout as it happens. It returns the exit code; err is
// reserved for failures to launch or wait at all.
type Runner interface {
	Run(ctx context.Context, cmd Command, stdout io.Writer) (exitCode int, err error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd Command, stdout io.Writer) (int, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stdout

	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}
