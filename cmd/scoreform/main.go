package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liamcoop/scoreform/internal/formui"
	"github.com/liamcoop/scoreform/internal/logger"
	"github.com/liamcoop/scoreform/rules"
)

func newRootCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:           "scoreform",
		Short:         "Build a scoring rule set interactively in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := rules.ParseFormat(format)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			model := rules.NewRuleSetModel(rules.WithNotifier(formui.PrintNotifier(out)))
			prompter := formui.NewHuhPrompter(cmd.InOrStdin(), out)

			return formui.NewEditor(model, prompter, out, f).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(rules.FormatJSON), "output format: json or yaml")

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Error("scoreform exited", "error", err)
		os.Exit(1)
	}
}
