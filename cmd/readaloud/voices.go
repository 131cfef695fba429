package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lexiqai/readaloud/internal/persona"
	"github.com/lexiqai/readaloud/internal/voice"
)

func newVoicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List installed voices and the personas they serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, _, wait := a.newPlayback()
			defer wait()

			voices, err := catalog.Voices(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list voices: %w", err)
			}

			matches := make(map[string]string)
			for _, p := range persona.All() {
				if v, ok := voice.Match(voices, p); ok {
					matches[v.Name] = p.String()
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLANGUAGE\tPERSONA")
			for _, v := range voices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, v.Language, matches[v.Name])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, p := range persona.All() {
				if _, ok := voice.Match(voices, p); !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "no voice for %s (looking for %q)\n", p, p.VoiceFragment())
				}
			}
			return nil
		},
	}
}
