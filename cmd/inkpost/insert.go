package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkpost/internal/api"
	"inkpost/internal/config"
	"inkpost/internal/models"
	"inkpost/internal/server"
	"inkpost/internal/upload"
)

const (
	viaDrop  = "drop"
	viaPaste = "paste"
	viaPick  = "pick"
)

type insertOptions struct {
	at       string
	via      string
	category string
	local    bool
	quiet    bool
}

type insertResult struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

type insertReport struct {
	Document string               `json:"document"`
	At       string               `json:"at"`
	Inserted int                  `json:"inserted"`
	Failed   int                  `json:"failed"`
	Progress upload.ProgressState `json:"progress"`
	Results  []insertResult       `json:"results"`
}

func newInsertCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &insertOptions{}

	cmd := &cobra.Command{
		Use:   "insert <document> <file>...",
		Short: "Upload files and insert their markup into a markdown document",
		Long: "Upload files concurrently and insert one markup line per successful upload at the\n" +
			"cursor position of a markdown document. Failed files are reported and skipped.",
		Args: requireAtLeastArgs(2, "document and at least one file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]models.File, 0, len(args)-1)
			for _, path := range args[1:] {
				file, err := models.FileFromPath(path)
				if err != nil {
					return err
				}
				files = append(files, file)
			}

			var progressOut io.Writer = os.Stderr
			if *jsonOutput || opts.quiet {
				progressOut = io.Discard
			}

			run := func(transport upload.Transport) error {
				report, err := runInsert(cmd.Context(), cfg.Editor, transport, args[0], files, *opts, progressOut)
				if err != nil {
					return err
				}
				if *jsonOutput {
					if err := writeJSON(report); err != nil {
						return err
					}
				} else if err := writeInsertReport(report); err != nil {
					return err
				}
				if report.Inserted == 0 {
					return fmt.Errorf("no files were uploaded; %s left unchanged", report.Document)
				}
				return nil
			}

			if opts.local {
				logger := slog.Default().With("component", "insert")
				service, closeStore, err := openUploadService(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer closeStore()
				return run(server.NewLocalTransport(service))
			}
			return withClient(cfg, func(client *api.Client) error {
				return run(api.NewTransport(client))
			})
		},
	}

	cmd.Flags().StringVar(&opts.at, "at", "", "insert position as line:col (one-based); defaults to the end of the document")
	cmd.Flags().StringVar(&opts.via, "via", viaPick, "insertion action: drop, paste or pick")
	cmd.Flags().StringVar(&opts.category, "category", "", "upload category; defaults to editor.category")
	cmd.Flags().BoolVar(&opts.local, "local", false, "store files directly without an API server")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

// runInsert uploads files into the document at path and rewrites it. The
// document is only written when at least one file was inserted.
func runInsert(ctx context.Context, editorCfg config.EditorConfig, transport upload.Transport, path string, files []models.File, opts insertOptions, progressOut io.Writer) (insertReport, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return insertReport{}, err
	}
	at, err := doc.placeCursor(opts.at)
	if err != nil {
		return insertReport{}, err
	}

	printer := newProgressPrinter(progressOut)
	trigger, orchestrator, err := newTrigger(editorCfg, opts.category, transport, printer.observe)
	if err != nil {
		return insertReport{}, err
	}

	handle, err := triggerAction(trigger, opts.via)
	if err != nil {
		return insertReport{}, err
	}
	outcome, err := handle(ctx, doc.buffer, files)
	if err != nil {
		return insertReport{}, err
	}

	report := insertReport{
		Document: path,
		At:       at.String(),
		Inserted: outcome.Inserted,
		Failed:   outcome.Failed,
		Progress: orchestrator.Progress(),
		Results:  make([]insertResult, 0, len(outcome.Results)),
	}
	for _, result := range outcome.Results {
		item := insertResult{Name: result.Name, URL: result.URL}
		if result.Err != nil {
			item.Error = result.Err.Error()
		}
		report.Results = append(report.Results, item)
	}

	if outcome.Inserted > 0 {
		if err := doc.save(); err != nil {
			return report, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return report, nil
}

func newTrigger(editorCfg config.EditorConfig, categoryOverride string, transport upload.Transport, listener upload.ProgressListener) (*upload.Trigger, *upload.Orchestrator, error) {
	style, err := upload.ParseMarkupStyle(editorCfg.MarkupStyle)
	if err != nil {
		return nil, nil, err
	}
	policy, err := upload.ParseProgressPolicy(editorCfg.ProgressPolicy)
	if err != nil {
		return nil, nil, err
	}
	category, err := models.ParseCategory(chooseFirst(categoryOverride, editorCfg.Category, string(models.CategoryPost)))
	if err != nil {
		return nil, nil, err
	}

	orchestrator := upload.NewOrchestrator(transport,
		upload.WithPlaceholderLabel(editorCfg.PlaceholderLabel),
		upload.WithMarkupStyle(style),
		upload.WithProgressPolicy(policy),
		upload.WithProgressListener(listener),
		upload.WithLogger(slog.Default().With("component", "orchestrator")),
	)
	trigger := upload.NewTrigger(orchestrator, upload.Policy{
		MaxFileBytes: editorCfg.MaxFileBytes,
		AllowedKinds: editorCfg.AllowedKinds,
	}, category)
	return trigger, orchestrator, nil
}

type triggerHandle func(ctx context.Context, buffer upload.Surface, files []models.File) (upload.Outcome, error)

func triggerAction(trigger *upload.Trigger, via string) (triggerHandle, error) {
	switch strings.ToLower(strings.TrimSpace(via)) {
	case viaDrop:
		return trigger.HandleDrop, nil
	case viaPaste:
		return trigger.HandlePaste, nil
	case "", viaPick:
		return trigger.HandlePick, nil
	default:
		return nil, fmt.Errorf("invalid --via %q (expected drop, paste or pick)", via)
	}
}

func writeInsertReport(report insertReport) error {
	for _, result := range report.Results {
		if result.Error != "" {
			if err := writePlain("✗ %s: %s\n", result.Name, result.Error); err != nil {
				return err
			}
			continue
		}
		if err := writePlain("✓ %s %s\n", result.Name, result.URL); err != nil {
			return err
		}
	}
	if report.Inserted == 0 {
		return nil
	}
	return writePlain("inserted %d of %d files into %s at %s\n",
		report.Inserted, report.Inserted+report.Failed, report.Document, report.At)
}
