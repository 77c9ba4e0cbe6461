package topaz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// CompatibilityError reports an installed CLI too old for a feature. It is
// raised before any process launch.
type CompatibilityError struct {
	Installed string
	Minimum   string
	Feature   string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("Topaz CLI version %q does not support %s, minimum required version is %s",
		e.Installed, e.Feature, e.Minimum)
}

// ReadVersion reads the installed CLI version from the version file in the
// installation directory.
func ReadVersion(cliDir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(cliDir, VersionFile))
	if err != nil {
		return "", fmt.Errorf("reading CLI version: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// CheckCompatibility fails with a CompatibilityError when installed is below
// MinVersion or is not a version string at all.
func CheckCompatibility(installed string) error {
	return check(installed, MinVersion, "the source download feature")
}

// CheckProtocolSupported fails with a CompatibilityError when installed does
// not understand the -protocol flag.
func CheckProtocolSupported(installed string) error {
	return check(installed, MinProtocolVersion, "the encryption protocol option")
}

func check(installed, minimum, feature string) error {
	v, ok := canonical(installed)
	if !ok {
		return &CompatibilityError{Installed: installed, Minimum: minimum, Feature: feature}
	}
	m, ok := canonical(minimum)
	if !ok {
		return fmt.Errorf("invalid minimum version %q", minimum)
	}
	if semver.Compare(v, m) < 0 {
		return &CompatibilityError{Installed: installed, Minimum: minimum, Feature: feature}
	}
	return nil
}

// canonical turns CLI version strings like "19.4.1" or "v20.1" into the
// three-group form semver expects. CLI versions have no pre-release or build
// metadata, so anything beyond dotted digits is rejected.
func canonical(version string) (string, bool) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if v == "" {
		return "", false
	}
	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for _, p := range parts {
		if p == "" {
			return "", false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return "", false
			}
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts, "."), true
}
