// Package topaz captures the invocation contract of the Topaz Workbench SCM
// Downloader CLI: script names, argument flags, version requirements and the
// quoting rules its generated launcher scripts expect.
package topaz

const (
	// Launcher scripts inside the CLI installation directory, picked per the
	// OS of the node the build runs on.
	ScriptUnix    = "SCMDownloaderCLI.sh"
	ScriptWindows = "SCMDownloaderCLI.bat"

	// VersionFile inside the CLI installation directory holds the installed
	// version string.
	VersionFile = "version.txt"

	// ScratchPrefix prefixes the per-invocation CLI data directory inside
	// the workspace. A random token is appended, so concurrent builds
	// sharing a workspace root never collide.
	ScratchPrefix = "TopazCliWkspc"

	// SCMTypeEndevor is the fixed value of the SCM-type flag.
	SCMTypeEndevor = "endevor"

	// MinVersion is the oldest CLI this downloader works with;
	// MinProtocolVersion additionally gates the -protocol flag.
	MinVersion         = "18.2.3"
	MinProtocolVersion = "19.4.1"
)

// CLI argument flags, in the order the downloader passes them.
const (
	HostFlag          = "-host"
	PortFlag          = "-port"
	UserIDFlag        = "-userid"
	PasswordFlag      = "-pw"
	ProtocolFlag      = "-protocol"
	CodePageFlag      = "-code"
	TimeoutFlag       = "-timeout"
	SCMTypeFlag       = "-scm"
	TargetFolderFlag  = "-targetFolder"
	DataFlag          = "-data"
	FilterFlag        = "-filter"
	FileExtensionFlag = "-fileExtension"
)
