package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkpost/internal/auth"
)

type tokenOutput struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"hash"`
}

func newTokenCmd(jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create API tokens for the upload server",
	}
	cmd.AddCommand(newTokenGenerateCmd(jsonOutput), newTokenHashCmd(jsonOutput))
	return cmd
}

func newTokenGenerateCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a random token and its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(tokenOutput{Token: token, Hash: hash})
			}
			_ = writePlain("token: %s\n", token)
			_ = writePlain("hash: %s\n", hash)
			return writePlain("hint: store the hash with: inkpost config set server.api_token_hash '<hash>'\n")
		},
	}
}

func newTokenHashCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hash [token]",
		Short: "Hash a token for server.api_token_hash (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				read, err := readTokenLine(os.Stdin)
				if err != nil {
					return err
				}
				token = read
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(tokenOutput{Hash: hash})
			}
			return writePlain("%s\n", hash)
		},
	}
}

func readTokenLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("token is required")
	}
	return line, nil
}
