package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude/internal/server"
)

func serveCmd(e *env) *cobra.Command {
	var (
		addr   string
		minify bool
	)

	c := &cobra.Command{
		Use:   "serve [DIR]",
		Short: "Serve a site with includes resolved on every request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			srv, err := server.New(server.Options{
				Root:          root,
				Minify:        minify || e.cfg.Minify,
				Cache:         e.cache(),
				LoaderOptions: e.loaderOptions(),
				Logger:        e.logger,
				Metrics:       e.metrics,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.ListenAndServe(ctx, addr, srv, e.logger.With("root", root))
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	c.Flags().BoolVar(&minify, "minify", false, "minify served pages")
	return c
}

