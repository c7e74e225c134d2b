//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(name string) *cobra.Command {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// TestCommandGroupAssignments verifies that commands are assigned to appropriate groups
func TestCommandGroupAssignments(t *testing.T) {
	tests := []struct {
		commandName   string
		expectedGroup string
	}{
		{commandName: "compile", expectedGroup: "development"},
		{commandName: "validate", expectedGroup: "development"},
		{commandName: "graph", expectedGroup: "analysis"},
		{commandName: "version", expectedGroup: ""},
	}

	for _, tt := range tests {
		t.Run(tt.commandName, func(t *testing.T) {
			cmd := findCommand(tt.commandName)
			require.NotNil(t, cmd, "command %q should be registered", tt.commandName)
			assert.Equal(t, tt.expectedGroup, cmd.GroupID)
		})
	}
}

// TestCommandGroupsExist verifies that all expected command groups exist
func TestCommandGroupsExist(t *testing.T) {
	expectedGroups := map[string]string{
		"development": "Development Commands:",
		"analysis":    "Analysis Commands:",
	}

	found := make(map[string]string)
	for _, group := range rootCmd.Groups() {
		found[group.ID] = group.Title
	}
	assert.Equal(t, expectedGroups, found)
}

func TestArgumentSyntax(t *testing.T) {
	tests := []struct {
		command     string
		expectedUse string
		args        []string
		wantArgsErr bool
	}{
		{command: "compile", expectedUse: "compile", args: []string{"extra"}, wantArgsErr: true},
		{command: "graph", expectedUse: "graph", args: []string{"extra"}, wantArgsErr: true},
		{command: "validate", expectedUse: "validate [file]...", args: []string{"a.ndjson", "b.ndjson"}},
		{command: "version", expectedUse: "version", args: []string{"extra"}, wantArgsErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := findCommand(tt.command)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.expectedUse, cmd.Use)
			if cmd.Args == nil {
				assert.False(t, tt.wantArgsErr, "%s accepts any arguments", tt.command)
				return
			}
			err := cmd.Args(cmd, tt.args)
			if tt.wantArgsErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.True(t, strings.HasPrefix(out.String(), "ocsfc version "), out.String())
}

func TestShortDescriptionsAreConsistent(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		t.Run(cmd.Name(), func(t *testing.T) {
			require.NotEmpty(t, cmd.Short)
			assert.False(t, strings.HasSuffix(cmd.Short, "."), "short descriptions do not end with a period")
			first := cmd.Short[:1]
			assert.Equal(t, strings.ToUpper(first), first, "short descriptions start with a capital letter")
		})
	}
}
