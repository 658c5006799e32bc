package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"inkpost/internal/api"
	"inkpost/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show server storage and category limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("api_url: %s\n", client.BaseURL())
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("storage_backend: %s\n", resp.StorageBackend)
				_ = writePlain("total_uploads: %d\n", resp.TotalUploads)
				for _, category := range resp.Categories {
					_ = writePlain("  %s: %d uploads, max %s\n",
						category.Name, resp.UploadCounts[category.Name], humanize.IBytes(uint64(max(category.MaxBytes, 0))))
				}
				return nil
			})
		},
	}
	return cmd
}
