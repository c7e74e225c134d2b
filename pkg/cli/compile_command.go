package cli

import (
	"github.com/spf13/cobra"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var compileCommandLog = logger.New("cli:compile_command")

// NewCompileCommand creates the compile command
func NewCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile an OCSF schema corpus into validators",
		Long: `Compile an OCSF schema corpus into validators.

The corpus directory holds dictionary.json, categories.json, version.json and
the objects/ and events/ descriptor trees. Every concrete object and event
class is emitted as Go validator code (go/), a JSON Schema 2020-12 document
(jsonschema/), and listed in manifest.yaml.

Settings are read from ` + constants.DefaultConfigFile + ` in the current directory when present;
command line flags override the file.

Examples:
  ` + constants.CLIName + ` compile --corpus ./ocsf-schema --out ./gen
  ` + constants.CLIName + ` compile --corpus ./ocsf-schema --out ./gen --format go --package ocsf
  ` + constants.CLIName + ` compile --config build/ocsfc.yaml --verify --stats
  ` + constants.CLIName + ` compile --corpus ./ocsf-schema --out ./gen --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			config, err := LoadCompileConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			applyCompileFlags(cmd, &config)

			compileCommandLog.Printf("Running compile command: corpus=%s, out=%s", config.CorpusDir, config.OutDir)
			_, err = CompileCorpus(cmd.Context(), config)
			return err
		},
	}

	cmd.Flags().StringP("corpus", "c", "", "OCSF schema corpus directory")
	cmd.Flags().StringP("out", "o", "", "Output directory")
	cmd.Flags().StringSliceP("format", "f", nil, "Output formats: go, jsonschema (default: all)")
	cmd.Flags().String("package", "", "Package name of generated Go code (default: ocsf)")
	cmd.Flags().String("schema-base-url", "", "Base URL of JSON Schema document ids")
	cmd.Flags().IntP("workers", "w", 0, "Entities rendered concurrently (default: GOMAXPROCS)")
	cmd.Flags().Bool("verify", false, "Compile every emitted JSON Schema document before writing")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first corpus error instead of collecting all errors")
	cmd.Flags().Bool("watch", false, "Recompile whenever the corpus changes")
	cmd.Flags().Bool("stats", false, "Display a statistics table")
	cmd.Flags().String("config", "", "Configuration file (default: "+constants.DefaultConfigFile+")")

	return cmd
}

// applyCompileFlags overlays the flags that were set on the command line.
func applyCompileFlags(cmd *cobra.Command, config *CompileConfig) {
	flags := cmd.Flags()
	if flags.Changed("corpus") {
		config.CorpusDir, _ = flags.GetString("corpus")
	}
	if flags.Changed("out") {
		config.OutDir, _ = flags.GetString("out")
	}
	if flags.Changed("format") {
		config.Formats, _ = flags.GetStringSlice("format")
	}
	if flags.Changed("package") {
		config.Package, _ = flags.GetString("package")
	}
	if flags.Changed("schema-base-url") {
		config.SchemaBaseURL, _ = flags.GetString("schema-base-url")
	}
	if flags.Changed("workers") {
		config.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("verify") {
		config.Verify, _ = flags.GetBool("verify")
	}
	if flags.Changed("fail-fast") {
		config.FailFast, _ = flags.GetBool("fail-fast")
	}
	if flags.Changed("stats") {
		config.Stats, _ = flags.GetBool("stats")
	}
	config.Watch, _ = flags.GetBool("watch")
	config.Verbose, _ = cmd.Flags().GetBool("verbose")
}
