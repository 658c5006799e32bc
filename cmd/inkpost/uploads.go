package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"inkpost/internal/api"
	"inkpost/internal/config"
)

func newUploadsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "uploads", Short: "Manage stored uploads"}
	cmd.AddCommand(
		newUploadsListCmd(cfg, jsonOutput),
		newUploadsShowCmd(cfg, jsonOutput),
		newUploadsRemoveCmd(cfg, jsonOutput),
	)
	return cmd
}

func newUploadsListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "category", category)
			if limit > 0 {
				query.Set("limit", intToString(limit))
			}
			return withClient(cfg, func(client *api.Client) error {
				uploads, err := client.ListUploads(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(uploads)
				}
				return writeUploadList(uploads)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of uploads")
	return cmd
}

func newUploadsShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <upload-id>",
		Short: "Show upload details",
		Args:  requireUploadID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				stored, err := client.GetUpload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(stored)
				}
				return writeUploadDetail(stored)
			})
		},
	}
}

func newUploadsRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <upload-id>",
		Aliases: []string{"remove"},
		Short:   "Delete an upload and its stored file",
		Args:    requireUploadID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteUpload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("deleted %s\n", resp.ID)
			})
		},
	}
}
