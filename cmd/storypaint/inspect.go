package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/leofalp/storypaint/internal/utils"
)

func newLocateCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "locate <file|->",
		Short: "Find the image in a saved model response",
		Long: `locate reads a model response dump (JSON or plain text) and prints the
embedded image as base64, or writes the raw bytes to --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.readInput(args[0])
			if err != nil {
				return err
			}

			result := newLocator(a.cfg.Locate).LocateJSON(body)
			a.logger().Debug("locate finished", "result", result.String(), "nodes", result.Nodes)
			if !result.Found() {
				return fmt.Errorf("no image found in %s", args[0])
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), result.Base64())
				return nil
			}
			if err := afero.WriteFile(a.fs, out, result.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes, via %s)\n", out, result.MimeType(), len(result.Data), result.Strategy)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the decoded image to this file")
	return cmd
}

type recoverOutput struct {
	Source string `json:"source"`
	Record any    `json:"record"`
	Error  string `json:"error,omitempty"`
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <file|->",
		Short: "Extract the activity from saved model text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(args[0])
			if err != nil {
				return err
			}

			outcome := newRecoverer(a.cfg.Activity).Recover(string(text))
			output := recoverOutput{Source: string(outcome.Source), Record: outcome.Record}
			if outcome.Err != nil {
				output.Error = outcome.Err.Error()
			}
			fmt.Fprintln(cmd.OutOrStdout(), utils.JSONToString(output, true))
			return nil
		},
	}
}

// readInput reads a file from the app filesystem, or stdin for "-".
func (a *app) readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := afero.ReadFile(a.fs, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
