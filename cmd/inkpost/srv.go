package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"inkpost/internal/config"
	"inkpost/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the inkpost upload server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			uploads, closeStore, err := openUploadService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if cfg.Server.APITokenHash == "" {
				logger.Warn("api token not configured; upload api is unauthenticated")
			}

			srv := server.New(addr, uploads, logger, server.Options{
				APITokenHash:       cfg.Server.APITokenHash,
				MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
			})
			return srv.ListenAndServe()
		},
	}
}
