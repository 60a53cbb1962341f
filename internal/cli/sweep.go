package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forcelayout/declutter/pkg/archive"
	"github.com/forcelayout/declutter/pkg/errors"
	"github.com/forcelayout/declutter/pkg/sweep"
)

// sweepFlags holds the command-line options for the sweep command.
type sweepFlags struct {
	cache       cacheFlags
	archiveName string
	mongoURI    string
}

// newSweepCmd creates the sweep command, which executes a plan of seeds and
// parameter variations.
func newSweepCmd() *cobra.Command {
	flags := &sweepFlags{}

	cmd := &cobra.Command{
		Use:   "sweep <plan.toml>",
		Short: "Execute a plan of seeds and parameter variations",
		Long: `Execute a sweep plan: every parameter variation in the plan is run over
every seed, and the results are aggregated per variation (settle rate,
mean steps, mean final energy, worst separation).

Run results are cached by graph recipe and parameter set, so re-running a
plan after editing one variation only simulates what changed. With
--archive mongo every fresh run is also appended to a MongoDB collection
for offline tuning analysis.

A .env file in the working directory is loaded for backend settings
(DECLUTTER_REDIS_ADDR, DECLUTTER_MONGO_URI).`,
		Example: `  declutter sweep plans/office.toml
  declutter sweep plans/office.toml --cache redis --archive mongo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, flags, args[0])
		},
	}

	flags.cache.register(cmd)
	cmd.Flags().StringVar(&flags.archiveName, "archive", "off", "archive backend: off or mongo")
	cmd.Flags().StringVar(&flags.mongoURI, "mongo-uri", "", "MongoDB connection URI (default $DECLUTTER_MONGO_URI)")

	return cmd
}

func runSweep(cmd *cobra.Command, flags *sweepFlags, planPath string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	// Missing .env is fine; flags and the real environment still apply.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	plan, err := sweep.LoadPlan(planPath)
	if err != nil {
		return err
	}

	c, err := flags.cache.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	arch, err := openArchive(cmd, flags)
	if err != nil {
		return err
	}
	defer arch.Close()

	printInfo("Sweeping %s: %d runs (%d variations × %d seeds)",
		plan.Name, plan.Runs(), len(plan.Variations), len(plan.Seeds))

	runner := sweep.NewRunner(c, nil, arch, logger)
	summary, err := runner.Execute(ctx, plan)
	if err != nil {
		return err
	}

	printSweepSummary(summary)
	return nil
}

// openArchive connects the selected archive backend.
func openArchive(cmd *cobra.Command, flags *sweepFlags) (archive.Archive, error) {
	switch flags.archiveName {
	case "off":
		return archive.NewNullArchive(), nil
	case "mongo":
		uri := flags.mongoURI
		if uri == "" {
			uri = os.Getenv("DECLUTTER_MONGO_URI")
		}
		if err := errors.ValidateMongoURI(uri); err != nil {
			return nil, err
		}
		return archive.NewMongoArchive(cmd.Context(), archive.MongoConfig{URI: uri})
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown archive backend %q (want off or mongo)", flags.archiveName)
	}
}

// printSweepSummary renders the per-variation aggregates and the sweep-wide
// counters.
func printSweepSummary(s *sweep.Summary) {
	printNewline()

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, 0, len(s.Variations))
	for _, vs := range s.Variations {
		rows = append(rows, []string{
			vs.Label,
			fmt.Sprintf("%d/%d", vs.Settled, vs.Runs),
			fmt.Sprintf("%.1f ± %.1f", vs.MeanSteps, vs.StdDevSteps),
			fmt.Sprintf("%.4f", vs.MeanEnergy),
			fmt.Sprintf("%.3f", vs.WorstSeparation),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Variation", "Settled", "Steps", "Energy", "Worst sep").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleHighlight
			}
			return StyleValue
		})
	fmt.Println(t.Render())
	printNewline()

	printSuccess("Sweep %s finished in %s", s.Name, s.Stats.Duration.Round(time.Millisecond))
	printDetail("%d runs · %d settled · %d step-limited · %d canceled",
		s.Stats.Runs, s.Stats.Settled, s.Stats.StepLimited, s.Stats.Canceled)
	printDetail("cache: %d hits · %d misses", s.Cache.Hits, s.Cache.Misses)
}
