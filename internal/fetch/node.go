package fetch

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/mainframe-ci/endevor-fetch/internal/topaz"
)

// Node describes the execution node a build runs on. Builds may execute on
// remote, heterogeneous nodes, so the path separator, launcher script flavor
// and filesystem operations are all decided per node and never taken from
// the controlling process.
type Node interface {
	Runner

	// Separator is the node's path separator convention.
	Separator() string
	// IsUnix selects between the shell and batch launcher scripts.
	IsUnix() bool
	// CLIDir is the Topaz CLI installation directory on the node.
	CLIDir() string
	// CLIVersion reads the installed CLI version on the node.
	CLIVersion() (string, error)
	// Environ is the build environment passed to the CLI process.
	Environ() []string

	MkdirAll(path string) error
	RemoveAll(path string) error
}

// LocalNode is the Node running builds in the current process' OS, which is
// all a standalone invocation needs.
type LocalNode struct {
	cliDir string
}

func NewLocalNode(cliDir string) LocalNode {
	return LocalNode{cliDir: cliDir}
}

func (LocalNode) Separator() string {
	return string(os.PathSeparator)
}

func (LocalNode) IsUnix() bool {
	return runtime.GOOS != "windows"
}

func (n LocalNode) CLIDir() string {
	return n.cliDir
}

func (n LocalNode) CLIVersion() (string, error) {
	return topaz.ReadVersion(n.cliDir)
}

func (LocalNode) Environ() []string {
	return os.Environ()
}

func (LocalNode) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (LocalNode) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (n LocalNode) Run(ctx context.Context, cmd Command, stdout io.Writer) (int, error) {
	return ExecRunner{}.Run(ctx, cmd, stdout)
}
