package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/githubnext/ocsfc/pkg/console"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/emitter"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/resolver"
)

var compileOrchestratorLog = logger.New("cli:compile_orchestrator")

// CompilationStats summarizes one compile run.
type CompilationStats struct {
	Version   string
	Objects   int
	Events    int
	Cycles    int
	Deferred  int
	Artifacts int
	Bytes     int
}

// CompileCorpus loads, resolves and emits the corpus described by config.
// Nothing is written when the corpus has errors.
func CompileCorpus(ctx context.Context, config CompileConfig) (*CompilationStats, error) {
	compileOrchestratorLog.Printf("Starting corpus compilation: corpus=%s, out=%s, formats=%v, watch=%v",
		config.CorpusDir, config.OutDir, config.Formats, config.Watch)

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage("Operation cancelled"))
		return nil, ctx.Err()
	default:
	}

	if err := validateCompileConfig(config); err != nil {
		return nil, err
	}

	if config.Watch {
		return nil, watchAndCompile(ctx, config)
	}
	return compileOnce(ctx, config)
}

func compileOnce(ctx context.Context, config CompileConfig) (*CompilationStats, error) {
	opts, err := config.emitOptions()
	if err != nil {
		return nil, err
	}

	plan, err := loadPlan(config.CorpusDir, config.FailFast, config.Verbose)
	if err != nil {
		return nil, err
	}

	result, err := emitter.Emit(ctx, plan, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to emit validators: %w", err)
	}

	stats := &CompilationStats{
		Version:   plan.Version(),
		Objects:   len(plan.Objects()),
		Events:    len(plan.Events()),
		Cycles:    len(plan.Graph.Cycles()),
		Artifacts: len(result.Artifacts),
	}
	for _, u := range plan.Order {
		if u.Strategy == emitter.Deferred {
			stats.Deferred++
		}
	}
	for _, a := range result.Artifacts {
		stats.Bytes += len(a.Data)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf(
		"Compiled OCSF %s: %d objects, %d events, %d files in %s",
		stats.Version, stats.Objects, stats.Events, stats.Artifacts, config.OutDir)))
	if config.Stats {
		fmt.Fprint(os.Stderr, renderStatsTable(stats))
	}
	return stats, nil
}

// loadPlan runs the load and resolve stages and plans emission.
func loadPlan(corpusDir string, failFast, verbose bool) (*emitter.Plan, error) {
	console.LogVerbose(verbose, "Loading corpus from "+corpusDir)
	c, err := corpus.LoadWithOptions(corpusDir, corpus.LoadOptions{FailFast: failFast})
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	console.LogVerbose(verbose, fmt.Sprintf("Loaded OCSF %s: %d objects, %d events", c.Version, len(c.Objects), len(c.Events)))

	g, err := resolver.Resolve(c)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve corpus: %w", err)
	}
	for _, cycle := range g.Cycles() {
		console.LogVerbose(verbose, fmt.Sprintf("Reference cycle: %v", cycle))
	}

	return emitter.NewPlan(g)
}

func renderStatsTable(stats *CompilationStats) string {
	return console.RenderTable(console.TableConfig{
		Title:   "Compilation statistics",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"OCSF version", stats.Version},
			{"Objects", strconv.Itoa(stats.Objects)},
			{"Events", strconv.Itoa(stats.Events)},
			{"Reference cycles", strconv.Itoa(stats.Cycles)},
			{"Deferred entities", strconv.Itoa(stats.Deferred)},
			{"Files", strconv.Itoa(stats.Artifacts)},
			{"Bytes", strconv.Itoa(stats.Bytes)},
		},
	})
}
