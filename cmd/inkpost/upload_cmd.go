package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkpost/internal/api"
	"inkpost/internal/config"
	"inkpost/internal/models"
	"inkpost/internal/upload"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		category  string
		filename  string
		mediaType string
	)

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload one file and print its public URL",
		Args:  requireExactlyArgs(1, "path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseCategory(chooseFirst(category, cfg.Editor.Category))
			if err != nil {
				return err
			}
			file, err := models.FileFromPath(args[0])
			if err != nil {
				return err
			}
			if name := strings.TrimSpace(filename); name != "" {
				file.Name = name
			}
			if mt := strings.TrimSpace(mediaType); mt != "" {
				file.MediaType = mt
			}

			var progress func(int)
			if !*jsonOutput {
				printer := newProgressPrinter(os.Stderr)
				progress = func(percent int) {
					printer.observe(upload.ProgressState{Percent: percent, Status: upload.StatusUploading})
				}
			}

			return withClient(cfg, func(client *api.Client) error {
				stored, err := client.UploadFile(cmd.Context(), parsed, file, progress)
				if err != nil {
					return fmt.Errorf("upload %s: %w", file.Name, err)
				}
				if *jsonOutput {
					return writeJSON(stored)
				}
				return writePlain("%s\n", stored.URL)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "upload category (avatar, post, branding); defaults to editor.category")
	cmd.Flags().StringVar(&filename, "filename", "", "override the stored filename")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "declared media type; inferred from the extension by default")
	return cmd
}
