package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/githubnext/ocsfc/pkg/console"
	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/resolver"
)

var graphCommandLog = logger.New("cli:graph_command")

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the object reference graph of an OCSF corpus as a Mermaid diagram",
		Long: `Print the object reference graph of an OCSF corpus as a Mermaid flowchart.

Edges are labelled with the referencing attributes. Dotted edges join two
entities on a reference cycle; those references are emitted as deferred
validators.

Examples:
  ` + constants.CLIName + ` graph --corpus ./ocsf-schema
  ` + constants.CLIName + ` graph --corpus ./ocsf-schema --cyclic-only
  ` + constants.CLIName + ` graph --corpus ./ocsf-schema --events > graph.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpusDir, _ := cmd.Flags().GetString("corpus")
			cyclicOnly, _ := cmd.Flags().GetBool("cyclic-only")
			events, _ := cmd.Flags().GetBool("events")

			graphCommandLog.Printf("Running graph command: corpus=%s, cyclic_only=%v, events=%v", corpusDir, cyclicOnly, events)

			c, err := corpus.Load(corpusDir)
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}
			g, err := resolver.Resolve(c)
			if err != nil {
				return fmt.Errorf("failed to resolve corpus: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), g.Mermaid(resolver.MermaidOptions{CyclicOnly: cyclicOnly, IncludeEvents: events}))
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("%d reference cycles", len(g.Cycles()))))
			return nil
		},
	}

	cmd.Flags().StringP("corpus", "c", "", "OCSF schema corpus directory")
	cmd.Flags().Bool("cyclic-only", false, "Only show entities on a reference cycle")
	cmd.Flags().Bool("events", false, "Include event classes")
	_ = cmd.MarkFlagRequired("corpus")

	return cmd
}
