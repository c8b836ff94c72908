package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/assessgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assessment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc, err := rt.service()
		if err != nil {
			return err
		}

		addr := rt.cfg.Server.Addr
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			addr = v
		}

		router := server.NewRouter(svc, server.Options{
			AllowedOrigins: rt.cfg.Server.AllowedOrigins,
			RequestTimeout: rt.cfg.Server.RequestTimeout,
		}, rt.logger.Named("http"))

		rt.logger.Info("starting server",
			zap.String("addr", addr),
			zap.Bool("llm", rt.provider != nil),
			zap.Bool("acquire", rt.cfg.Acquire.Enabled),
			zap.Bool("postgres", rt.pg != nil))
		return server.Run(cmd.Context(), addr, router, rt.logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ASSESSGEN_ADDR)")
}
