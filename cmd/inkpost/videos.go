package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"inkpost/internal/upload"
)

type videosReport struct {
	Document string            `json:"document"`
	Videos   []upload.VideoRef `json:"videos"`
}

func newVideosCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "videos <document>",
		Short: "List the videos a document links to or embeds",
		Args:  requireExactlyArgs(1, "document is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := scanVideos(args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(report)
			}
			return writeVideoList(os.Stdout, report.Videos)
		},
	}
}

func scanVideos(path string) (videosReport, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return videosReport{}, err
	}
	videos := upload.FindVideos(doc.buffer.Text())
	if videos == nil {
		videos = []upload.VideoRef{}
	}
	return videosReport{Document: path, Videos: videos}, nil
}

func writeVideoList(w io.Writer, videos []upload.VideoRef) error {
	for _, video := range videos {
		if _, err := fmt.Fprintln(w, formatVideoLine(video)); err != nil {
			return err
		}
	}
	return nil
}

func formatVideoLine(video upload.VideoRef) string {
	if video.Name == "" {
		return fmt.Sprintf("○ %s [%s] %s", video.Pos, video.Source, video.URL)
	}
	return fmt.Sprintf("○ %s [%s] %s - %s", video.Pos, video.Source, video.Name, video.URL)
}
