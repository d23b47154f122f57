package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/dispool/internal/config"
	"github.com/bnema/dispool/internal/daemon"
	"github.com/bnema/dispool/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the device-pool daemon",
	Long: `Starts the dispool daemon: opens the control socket and serves
add/del requests until interrupted. All live device pairs are destroyed
on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if cfg.Logging.LogLevel != "" {
			logger.SetLevel(cfg.Logging.LogLevel)
		}

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return d.Run(ctx)
	},
}
