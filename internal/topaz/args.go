package topaz

import (
	"strings"
)

// EscapeForScript prepares a value for interpolation into a generated
// launcher script. Values containing whitespace or double quotes are wrapped
// in double quotes with embedded quotes doubled; everything else passes
// through unchanged. The quoting rule comes from the CLI's own scripts, not
// from any POSIX shell.
func EscapeForScript(value string) string {
	if value == "" {
		return `""`
	}
	if !strings.ContainsAny(value, " \t\"") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// ConvertFilterPattern converts the job's newline separated dataset filter
// list into the comma separated form the CLI expects. Blank lines and
// surrounding whitespace are dropped; a single pattern passes through
// unchanged.
func ConvertFilterPattern(pattern string) string {
	lines := strings.Split(strings.ReplaceAll(pattern, "\r", ""), "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, ",")
}

// ResolvePath resolves folder against the workspace root using the execution
// node's separator. An absolute folder (either convention, since the node
// may run a different OS than the controller) is used as is.
func ResolvePath(folder, workspace, separator string) string {
	if folder == "" {
		return workspace
	}
	if isAbs(folder) {
		return folder
	}
	return workspace + separator + folder
}

func isAbs(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\\`) {
		return true
	}
	// drive letter, e.g. C:\ or C:/
	if len(path) >= 3 && path[1] == ':' &&
		(path[2] == '\\' || path[2] == '/') {
		c := path[0]
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	return false
}
