package cli

import (
	"fmt"
	"strings"

	"github.com/githubnext/ocsfc/pkg/logger"
	"golang.org/x/mod/semver"
)

var semverLog = logger.New("cli:semver")

// canonicalVersion returns v with a "v" prefix when it is a valid semantic
// version, or "" otherwise.
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// isNewerVersion reports whether v is a newer semantic version than other.
// Invalid versions are never newer.
func isNewerVersion(v, other string) bool {
	v1, v2 := canonicalVersion(v), canonicalVersion(other)
	if v1 == "" || v2 == "" {
		return false
	}
	result := semver.Compare(v1, v2)
	semverLog.Printf("Version comparison: %s vs %s = %d", v1, v2, result)
	return result > 0
}

// recordVersionWarning returns a warning when a record claims a newer schema
// version (metadata.version) than the corpus its validators were compiled from.
func recordVersionWarning(corpusVersion string, record map[string]any) string {
	metadata, ok := record["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	version, ok := metadata["version"].(string)
	if !ok || !isNewerVersion(version, corpusVersion) {
		return ""
	}
	return fmt.Sprintf("record uses OCSF %s, newer than the compiled corpus (%s)", version, corpusVersion)
}
