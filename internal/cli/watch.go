package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/forcelayout/declutter/pkg/layout"
	"github.com/forcelayout/declutter/pkg/render"
)

// newWatchCmd creates the watch command, which runs the simulation inside a
// live terminal dashboard.
func newWatchCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the simulation inside a live terminal dashboard",
		Long: `Run the same simulation as "declutter run", but inside a terminal
dashboard that plays the relaxation back in slices: step count, the
pseudo-energy decomposition, convergence statistics, and an energy trend
strip update live as samples are drained from the diagnostics queue.

Press q to cancel a running simulation cooperatively.`,
		Example: `  declutter watch --servers 4 --clients 12 --printers 3 --seed 7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchLayout(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.servers, "servers", layout.MinServers, "number of server nodes")
	cmd.Flags().IntVar(&flags.clients, "clients", 12, "number of client nodes")
	cmd.Flags().IntVar(&flags.printers, "printers", 3, "number of printer nodes")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "random seed for placement and wiring")
	cmd.Flags().StringVar(&flags.paramsFile, "params", "", "TOML physics parameter file")
	cmd.Flags().IntVar(&flags.maxSteps, "steps-max", 0, "override the hard step cap")

	return cmd
}

func watchLayout(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()

	params, err := loadParams(flags.paramsFile)
	if err != nil {
		return err
	}
	if flags.maxSteps > 0 {
		params.MaxSteps = flags.maxSteps
	}

	g, err := layout.BuildRandomGraph(flags.servers, flags.clients, flags.printers, flags.seed)
	if err != nil {
		return err
	}
	render.AssignRadii(g)

	svc, status := WatchServices()
	sim, err := layout.NewSimulation(g, params, svc)
	if err != nil {
		return err
	}

	model := NewWatchModel(ctx, sim, status)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("watch ui: %w", err)
	}

	printKeyValue("Outcome", sim.Outcome().String())
	printKeyValue("Steps", fmt.Sprintf("%d", sim.StepCount()))
	return nil
}
