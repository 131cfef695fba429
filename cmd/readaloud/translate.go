package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexiqai/readaloud/internal/persona"
)

func newTranslateCmd(a *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate between Vietnamese and English",
		Example: `  readaloud translate --to en "xin chào"
  readaloud translate --to vi "good morning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.newTranslator().Translate(cmd.Context(), strings.Join(args, " "), target)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "suggested persona: %s\n", result.SuggestedPersona)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", persona.LangEnglish, "Target language (vi or en)")
	return cmd
}
