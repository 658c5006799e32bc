package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inkpost/internal/config"
	"inkpost/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "inkpost",
		Short:         "Inkpost uploads media for markdown posts and inserts it into documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			name, err := outputFormatName(jsonOutput, yamlOutput)
			if err != nil {
				return err
			}
			if name != "" {
				formatter, err := format.ByName(name)
				if err != nil {
					return err
				}
				outputFormatter = formatter
				jsonOutput = true
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Commands only check jsonOutput; --yaml switches the formatter and sets it too.
	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg, &jsonOutput),
		newInsertCmd(cfg, &jsonOutput),
		newLinkCmd(cfg, &jsonOutput),
		newVideosCmd(&jsonOutput),
		newUploadsCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newTokenCmd(&jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}

func outputFormatName(jsonOutput, yamlOutput bool) (string, error) {
	switch {
	case jsonOutput && yamlOutput:
		return "", fmt.Errorf("--json and --yaml are mutually exclusive")
	case yamlOutput:
		return "yaml", nil
	case jsonOutput:
		return "json", nil
	default:
		return "", nil
	}
}
