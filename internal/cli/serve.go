package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forcelayout/declutter/internal/api"
	"github.com/forcelayout/declutter/pkg/layout"
)

// serveFlags holds the command-line options for the serve command.
type serveFlags struct {
	addr     string
	servers  int
	clients  int
	printers int
	seed     uint64

	paramsFile string
	cache      cacheFlags
}

// newServeCmd creates the serve command, which hosts a layout world behind
// the HTTP API.
func newServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a layout world behind the HTTP API",
		Long: `Build a layout world and serve it over HTTP. A run is launched with
POST /api/run and steps on a background goroutine while observers poll
GET /api/status and drain GET /api/samples; POST /api/reset swaps in a
fresh graph once the world is quiescent.

A .env file in the working directory is loaded before flags are read, so
deployments can keep DECLUTTER_LISTEN_ADDR out of their unit files.`,
		Example: `  declutter serve --addr :8080 --servers 4 --clients 12 --printers 3`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (default $DECLUTTER_LISTEN_ADDR or :8080)")
	cmd.Flags().IntVar(&flags.servers, "servers", layout.MinServers, "number of server nodes")
	cmd.Flags().IntVar(&flags.clients, "clients", 12, "number of client nodes")
	cmd.Flags().IntVar(&flags.printers, "printers", 3, "number of printer nodes")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "random seed for placement and wiring")
	cmd.Flags().StringVar(&flags.paramsFile, "params", "", "TOML physics parameter file")
	flags.cache.register(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	addr := flags.addr
	if addr == "" {
		addr = os.Getenv("DECLUTTER_LISTEN_ADDR")
	}
	if addr == "" {
		addr = ":8080"
	}

	params, err := loadParams(flags.paramsFile)
	if err != nil {
		return err
	}

	world, err := layout.NewWorld(params, flags.servers, flags.clients, flags.printers, flags.seed, nil)
	if err != nil {
		return err
	}

	srv, err := api.NewServer(world, addr, flags.seed, logger)
	if err != nil {
		return err
	}

	// Rendered SVGs are reused across requests for as long as the layout
	// geometry is unchanged.
	c, err := flags.cache.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	srv.UseRenderCache(c, nil)

	printInfo("Serving layout world on %s", addr)
	printNextStep("Launch a run", "curl -X POST localhost"+addr+"/api/run")
	return srv.ListenAndServe(ctx)
}
