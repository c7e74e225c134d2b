package cli

import (
	"github.com/spf13/cobra"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var validateLog = logger.New("cli:validate_command")

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]...",
		Short: "Validate newline-delimited JSON event records against an OCSF corpus",
		Long: `Validate event records against validators compiled in memory from an OCSF
schema corpus. Each input file holds one JSON record per line; "-" or no file
reads standard input.

Every record is normalized (sibling labels and classification uids are filled
in) and then validated. A bad record never stops the batch: one outcome is
reported per record, and the command exits non-zero when any record failed.

The event class is taken from each record's class_uid unless --class names it.

Examples:
  ` + constants.CLIName + ` validate --corpus ./ocsf-schema events.ndjson
  ` + constants.CLIName + ` validate --corpus ./ocsf-schema --class incident_finding findings.ndjson
  cat events.ndjson | ` + constants.CLIName + ` validate --corpus ./ocsf-schema --json
  ` + constants.CLIName + ` validate --corpus ./ocsf-schema --jsonschema events.ndjson  # Cross-check with JSON Schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpusDir, _ := cmd.Flags().GetString("corpus")
			class, _ := cmd.Flags().GetString("class")
			jsonOutput, _ := cmd.Flags().GetBool("json")
			crossCheck, _ := cmd.Flags().GetBool("jsonschema")
			verbose, _ := cmd.Flags().GetBool("verbose")

			validateLog.Printf("Running validate command: files=%v, corpus=%s, class=%s", args, corpusDir, class)

			config := ValidateConfig{
				CorpusDir:  corpusDir,
				Class:      class,
				Files:      args,
				JSONOutput: jsonOutput,
				JSONSchema: crossCheck,
				Verbose:    verbose,
			}
			_, err := ValidateRecords(cmd.Context(), config, cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringP("corpus", "c", "", "OCSF schema corpus directory")
	cmd.Flags().String("class", "", "Event class name to validate every record as (default: from class_uid)")
	cmd.Flags().BoolP("json", "j", false, "Output one JSON result per record")
	cmd.Flags().Bool("jsonschema", false, "Cross-check accepted records against the emitted JSON Schema")
	_ = cmd.MarkFlagRequired("corpus")

	return cmd
}
