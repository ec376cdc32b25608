package cli

import (
	"context"
	"io"

	"github.com/fitiq/fitiq/internal/buildinfo"
	"github.com/fitiq/fitiq/internal/client/config"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/spf13/cobra"
)

// newLogger is replaced in tests.
var newLogger = func(verbose bool) (logging.Logger, func(), error) {
	z, err := logging.NewProductionZap(verbose)
	if err != nil {
		return nil, nil, err
	}
	l := logging.NewZapLogger(z)
	return l, func() { _ = l.Sync() }, nil
}

type runner struct {
	cfg   *config.Config
	in    io.Reader
	out   io.Writer
	app   *App
	flush func()
}

// Execute runs the fitiq command line. env holds FITIQ_* settings, see
// config.Environ.
func Execute(ctx context.Context, args []string, env map[string]string, in io.Reader, out, errOut io.Writer) error {
	cfg, err := config.Load(args, env)
	if err != nil {
		return err
	}
	r := &runner{cfg: cfg, in: in, out: out}
	defer r.shutdown()

	root := r.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fitiq",
		Short: "FitIQ profile and metric sync",
		Long: `fitiq keeps a local cache of your FitIQ profile, progress, mood and meal
logs. Every command works offline; changes are delivered to the backend by
'fitiq sync run' or by the background daemon.`,
		SilenceUsage:      true,
		PersistentPreRunE: r.open,
	}
	r.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		r.registerCommand(),
		r.loginCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.profileCommand(),
		r.healthCommand(),
		r.progressCommand(),
		r.moodCommand(),
		r.mealCommand(),
		r.syncCommand(),
		r.daemonCommand(),
		r.versionCommand(),
	)
	return root
}

// open validates the effective configuration and opens the App once flags
// have been parsed.
func (r *runner) open(cmd *cobra.Command, _ []string) error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	logger, flush, err := newLogger(r.cfg.Verbose)
	if err != nil {
		return err
	}
	r.flush = flush

	app, err := NewApp(cmd.Context(), r.cfg, logger, r.in, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *runner) shutdown() {
	if r.app != nil {
		_ = r.app.Close()
	}
	if r.flush != nil {
		r.flush()
	}
}

func (r *runner) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// No local cache needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}
