package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/githubnext/ocsfc/pkg/cli"
	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/logger"
)

// Build-time variables, set with -ldflags.
var (
	version = "dev"
)

var mainLog = logger.New("main")

var rootCmd = &cobra.Command{
	Use:   constants.CLIName,
	Short: "OCSF schema compiler: turns an OCSF schema corpus into validators",
	Long: `ocsfc compiles an Open Cybersecurity Schema Framework (OCSF) schema corpus into
validators for every object and event class: Go code, JSON Schema documents and
in-memory validators that normalize and check event records.

Common Tasks:
  ` + constants.CLIName + ` compile --corpus ./ocsf-schema --out ./gen   # Emit validators
  ` + constants.CLIName + ` validate --corpus ./ocsf-schema events.ndjson # Check event records
  ` + constants.CLIName + ` graph --corpus ./ocsf-schema --cyclic-only    # Show reference cycles

Set DEBUG=* (or DEBUG=emitter:*) to enable debug logging.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", constants.CLIName, resolvedVersion())
	},
}

// resolvedVersion prefers the -ldflags version, then the module build info.
func resolvedVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "development", Title: "Development Commands:"},
		&cobra.Group{ID: "analysis", Title: "Analysis Commands:"},
	)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	compileCmd := cli.NewCompileCommand()
	compileCmd.GroupID = "development"
	validateCmd := cli.NewValidateCommand()
	validateCmd.GroupID = "development"
	graphCmd := cli.NewGraphCommand()
	graphCmd.GroupID = "analysis"

	rootCmd.AddCommand(compileCmd, validateCmd, graphCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mainLog.Printf("Starting %s %s: args=%v", constants.CLIName, resolvedVersion(), os.Args[1:])
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintCommandError(err)
		stop()
		os.Exit(1)
	}
}
