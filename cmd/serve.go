package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tinyvm/tinyvm/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket server, one VM per connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if traceFlag {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Serve(ctx, addr, logger, stackCapacityFlag)
		},
	}
	c.Flags().StringVar(&addr, "addr", ":8099", "listen address")
	return c
}
