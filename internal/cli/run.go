package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

// runFlags holds the command-line options for the run command.
type runFlags struct {
	servers  int
	clients  int
	printers int
	seed     uint64

	paramsFile string
	maxSteps   int

	traceFile string
	dotFile   string
	svgFile   string
	detailed  bool
}

// newRunCmd creates the run command, which builds a network map and relaxes
// it to completion.
func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a network map and relax it to a decluttered layout",
		Long: `Build a randomized network map from category counts and a seed, then run
the force-directed simulation until it settles, is canceled, or hits the
step limit.

The layout can be exported once the run stops: --dot writes Graphviz DOT
with every position pinned, --svg rasterizes it, and --trace writes the
diagnostics samples captured during the run as JSON lines for offline
tuning analysis.`,
		Example: `  # Relax a small office map
  declutter run --servers 4 --clients 12 --printers 3

  # Reproduce a layout and export it
  declutter run --seed 42 --svg layout.svg

  # Tune against a parameter file and keep the diagnostics
  declutter run --params declutter.toml --trace trace.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.servers, "servers", layout.MinServers, "number of server nodes")
	cmd.Flags().IntVar(&flags.clients, "clients", 12, "number of client nodes")
	cmd.Flags().IntVar(&flags.printers, "printers", 3, "number of printer nodes")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "random seed for placement and wiring")
	cmd.Flags().StringVar(&flags.paramsFile, "params", "", "TOML physics parameter file")
	cmd.Flags().IntVar(&flags.maxSteps, "steps-max", 0, "override the hard step cap")
	cmd.Flags().StringVar(&flags.traceFile, "trace", "", "write diagnostics samples as JSON lines")
	cmd.Flags().StringVar(&flags.dotFile, "dot", "", "write the final layout as Graphviz DOT")
	cmd.Flags().StringVar(&flags.svgFile, "svg", "", "render the final layout as SVG")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "include positions and radii in exported labels")

	return cmd
}

func runLayout(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	params, err := loadParams(flags.paramsFile)
	if err != nil {
		return err
	}
	if flags.maxSteps > 0 {
		params.MaxSteps = flags.maxSteps
	}

	for _, path := range []string{flags.traceFile, flags.dotFile, flags.svgFile} {
		if path == "" {
			continue
		}
		if err := errors.ValidateOutputPath(path); err != nil {
			return err
		}
	}

	g, err := layout.BuildRandomGraph(flags.servers, flags.clients, flags.printers, flags.seed)
	if err != nil {
		return err
	}
	render.AssignRadii(g)
	logger.Debug("graph built",
		"servers", flags.servers,
		"clients", flags.clients,
		"printers", flags.printers,
		"edges", len(g.Edges()),
		"seed", flags.seed)

	spinner := newSpinnerWithContext(ctx, "decluttering layout...")
	svc := layout.ServiceFuncs{
		Progress: func(_ float64, label string) {
			spinner.SetMessage("decluttering layout... %s", label)
		},
	}
	sim, err := layout.NewSimulation(g, params, svc)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner.Start()

	// Samples are drained inside the loop so the bounded queue never drops
	// any, no matter how long the run goes.
	var trace []layout.Sample
	sim.Init(ctx)
	for sim.Step(ctx) {
		trace = append(trace, sim.Samples().Drain()...)
	}
	trace = append(trace, sim.Samples().Drain()...)

	outcome := sim.Outcome()
	if outcome == layout.Canceled {
		spinner.StopWithError(fmt.Sprintf("Layout canceled at step %d", sim.StepCount()))
		return ctx.Err()
	}
	spinner.StopWithSuccess(fmt.Sprintf("Layout %s after %d steps", outcome, sim.StepCount()))
	prog.done(fmt.Sprintf("Relaxed %d nodes", g.Len()))

	final := sim.Diagnostics()
	printStats(g.ServerCount(), g.ClientCount(), g.PrinterCount(), len(g.Edges()))
	printKeyValue("Outcome", outcome.String())
	printKeyValue("Steps", fmt.Sprintf("%d", sim.StepCount()))
	printKeyValue("Energy", fmt.Sprintf("%.4f", final.TotalEnergy))
	printKeyValue("Separation", fmt.Sprintf("%.3f", final.MinSeparation))
	if final.MinSeparation < 1 {
		printWarning("Some icons still overlap; try more steps or a higher overlap boost")
	}

	if flags.traceFile != "" {
		if err := writeTrace(flags.traceFile, trace); err != nil {
			return err
		}
		printFile(flags.traceFile)
	}

	dot := render.ToDOT(g, render.Options{Detailed: flags.detailed})
	if flags.dotFile != "" {
		if err := os.WriteFile(flags.dotFile, []byte(dot), 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeRender, err, "write DOT file %s", flags.dotFile)
		}
		printFile(flags.dotFile)
	}
	if flags.svgFile != "" {
		svg, err := render.RenderSVG(dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.svgFile, svg, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeRender, err, "write SVG file %s", flags.svgFile)
		}
		printFile(flags.svgFile)
	}

	if flags.svgFile == "" && flags.dotFile == "" {
		printNextStep("Export", "declutter run --svg layout.svg")
	}
	return nil
}

// loadParams resolves the physics parameters for a command: the given TOML
// file when set, the defaults otherwise.
func loadParams(path string) (layout.Params, error) {
	if path == "" {
		return layout.DefaultParams(), nil
	}
	return layout.LoadParams(path)
}

// writeTrace stores diagnostics samples as one JSON object per line.
func writeTrace(path string, samples []layout.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create trace file %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode trace sample")
		}
	}
	return nil
}
