package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mainframe-ci/endevor-fetch/internal/credentials"
	"github.com/mainframe-ci/endevor-fetch/internal/model"
	"github.com/mainframe-ci/endevor-fetch/internal/registry"
	"github.com/mainframe-ci/endevor-fetch/internal/topaz"
)

// ProcessExitError reports a CLI process that ran but returned non-zero.
type ProcessExitError struct {
	Script   string
	ExitCode int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("call %s exited with value = %d", e.Script, e.ExitCode)
}

// Credentials resolves a job-scoped credentials id into a login.
type Credentials interface {
	Resolve(scope, id string) (credentials.UserPass, error)
}

// Downloader retrieves Endevor members for one job configuration by
// invoking the Topaz SCM Downloader CLI on the execution node.
type Downloader struct {
	reg   registry.Registry
	creds Credentials
	cfg   model.JobConfig
}

func NewDownloader(reg registry.Registry, creds Credentials, cfg model.JobConfig) *Downloader {
	return &Downloader{
		reg:   reg,
		creds: creds,
		cfg:   cfg,
	}
}

// GetSource downloads the members selected by the job's filter pattern into
// the workspace on the node, streaming progress to out. The CLI runs inside
// the workspace with a per-invocation scratch directory which is removed
// again on success.
func (d *Downloader) GetSource(ctx context.Context, node Node, workspace string, out io.Writer) error {
	cliVersion, err := node.CLIVersion()
	if err != nil {
		return err
	}
	if err := topaz.CheckCompatibility(cliVersion); err != nil {
		return err
	}

	sep := node.Separator()
	script := topaz.ScriptWindows
	if node.IsUnix() {
		script = topaz.ScriptUnix
	}
	scriptPath := node.CLIDir() + sep + script
	fmt.Fprintln(out, "cliScriptFile: "+scriptPath)

	conn, err := d.reg.FindByID(ctx, d.cfg.ConnectionID)
	if err != nil {
		return fmt.Errorf("resolving connection %q of job %s: %w", d.cfg.ConnectionID, d.cfg.ID, err)
	}
	login, err := d.creds.Resolve(d.cfg.ID, d.cfg.CredentialsID)
	if err != nil {
		return fmt.Errorf("resolving credentials %q of job %s: %w", d.cfg.CredentialsID, d.cfg.ID, err)
	}

	targetFolder := topaz.ResolvePath(d.cfg.TargetFolder, workspace, sep)
	if d.cfg.TargetFolder != "" {
		fmt.Fprintln(out, "Source download folder: "+targetFolder)
	}

	scratchDir := workspace + sep + topaz.ScratchPrefix + uuid.NewString()
	fmt.Fprintln(out, "topazCliWorkspace: "+scratchDir)

	args := []string{
		topaz.HostFlag, topaz.EscapeForScript(conn.Host),
		topaz.PortFlag, topaz.EscapeForScript(conn.Port),
		topaz.UserIDFlag, topaz.EscapeForScript(login.Username),
		topaz.PasswordFlag, topaz.EscapeForScript(login.Password),
	}

	// protocol is omitted when empty or 'none', and gated on CLI support
	if conn.Protocol != "" && !strings.EqualFold(conn.Protocol, "none") {
		if err := topaz.CheckProtocolSupported(cliVersion); err != nil {
			return err
		}
		args = append(args, topaz.ProtocolFlag, conn.Protocol)
	}

	args = append(args,
		topaz.CodePageFlag, conn.CodePage,
		topaz.TimeoutFlag, topaz.EscapeForScript(conn.Timeout),
		topaz.SCMTypeFlag, topaz.SCMTypeEndevor,
		topaz.TargetFolderFlag, topaz.EscapeForScript(targetFolder),
		topaz.DataFlag, scratchDir,
		topaz.FilterFlag, topaz.EscapeForScript(topaz.ConvertFilterPattern(d.cfg.FilterPattern)),
		topaz.FileExtensionFlag, topaz.EscapeForScript(d.cfg.FileExtension),
	)

	if err := node.MkdirAll(workspace); err != nil {
		return fmt.Errorf("creating workspace %s: %w", workspace, err)
	}

	exitCode, err := node.Run(ctx, Command{
		Path: scriptPath,
		Args: args,
		Env:  node.Environ(),
		Dir:  workspace,
	}, out)
	if err != nil {
		return fmt.Errorf("launching %s: %w", script, err)
	}
	if exitCode != 0 {
		return &ProcessExitError{Script: script, ExitCode: exitCode}
	}

	fmt.Fprintf(out, "Call %s exited with value = %d\n", script, exitCode)
	if err := node.RemoveAll(scratchDir); err != nil {
		slog.WarnContext(ctx, "could not remove CLI scratch directory",
			"job", d.cfg.ID, "dir", scratchDir, "error", err)
	}
	slog.InfoContext(ctx, "download finished", "job", d.cfg.ID, "workspace", workspace)
	return nil
}
