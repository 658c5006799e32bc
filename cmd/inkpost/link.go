package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"inkpost/internal/config"
	"inkpost/internal/upload"
)

type linkOptions struct {
	url   string
	name  string
	at    string
	style string
}

func newLinkCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &linkOptions{}

	cmd := &cobra.Command{
		Use:   "link <document>",
		Short: "Insert markup for an already hosted file, such as a remote video",
		Args:  requireExactlyArgs(1, "document is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runLink(cfg.Editor, args[0], *opts)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(report)
			}
			return writePlain("inserted %s into %s at %s\n", report.Results[0].URL, report.Document, report.At)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "URL of the hosted file (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "label for the markup; defaults to the last URL path segment")
	cmd.Flags().StringVar(&opts.at, "at", "", "insert position as line:col (one-based); defaults to the end of the document")
	cmd.Flags().StringVar(&opts.style, "style", "", "markup style (embed or link); defaults to editor.markup_style")
	return cmd
}

func runLink(editorCfg config.EditorConfig, path string, opts linkOptions) (insertReport, error) {
	target := strings.TrimSpace(opts.url)
	if target == "" {
		return insertReport{}, fmt.Errorf("--url is required")
	}
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return insertReport{}, fmt.Errorf("invalid --url %q: expected an absolute URL", target)
	}
	style, err := upload.ParseMarkupStyle(chooseFirst(opts.style, editorCfg.MarkupStyle))
	if err != nil {
		return insertReport{}, err
	}

	doc, err := loadDocument(path)
	if err != nil {
		return insertReport{}, err
	}
	at, err := doc.placeCursor(opts.at)
	if err != nil {
		return insertReport{}, err
	}

	name := chooseFirst(opts.name, linkName(parsed))
	if err := upload.InsertLink(doc.buffer, name, target, style); err != nil {
		return insertReport{}, err
	}
	if err := doc.save(); err != nil {
		return insertReport{}, fmt.Errorf("write %s: %w", path, err)
	}
	return insertReport{
		Document: path,
		At:       at.String(),
		Inserted: 1,
		Progress: upload.ProgressState{Percent: 100, Status: upload.StatusSuccess},
		Results:  []insertResult{{Name: name, URL: target}},
	}, nil
}

func linkName(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		if unescaped, err := url.PathUnescape(last); err == nil {
			return unescaped
		}
		return last
	}
	return u.Host
}
