// Package stringutil provides the naming conversions used when OCSF names
// become Go identifiers and file names.
package stringutil

import (
	"strings"
	"unicode"
)

// commonInitialisms are upper-cased whole when they appear as a word.
var commonInitialisms = map[string]bool{
	"api": true, "dns": true, "http": true, "id": true, "ip": true, "ldap": true,
	"mac": true, "os": true, "rdp": true, "smb": true, "ssh": true, "tls": true,
	"uid": true, "url": true, "uuid": true, "vm": true,
}

// ToPascalCase converts a snake_case OCSF name to PascalCase ("network_activity" -> "NetworkActivity").
// Leading underscores and empty words are dropped.
func ToPascalCase(name string) string {
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == '.' }) {
		lower := strings.ToLower(word)
		if commonInitialisms[lower] {
			sb.WriteString(strings.ToUpper(lower))
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}

// GoIdentifier converts name to an exported Go identifier, prefixing names that
// would otherwise start with a digit.
func GoIdentifier(name string) string {
	id := ToPascalCase(name)
	if id == "" {
		return "X"
	}
	if unicode.IsDigit([]rune(id)[0]) {
		id = "X" + id
	}
	return id
}

// SchemaFileName returns the JSON Schema artifact file name for an entity.
func SchemaFileName(name string) string {
	return name + ".schema.json"
}

// GoFileName returns the generated Go file name for an entity.
func GoFileName(name string) string {
	return strings.TrimPrefix(name, "_") + "_gen.go"
}

// Truncate shortens s to maxLen runes, ending in "..." when there is room for it.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
