package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexiqai/readaloud/internal/persona"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		server      string
		personaName string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "download TEXT...",
		Short: "Download speech as MP3 from a readaloud relay",
		Long: `Download asks a running relay to synthesize the text and saves the MP3.
Text longer than 200 characters is truncated.`,
		Example: `  readaloud download --persona en_female -o speech.mp3 "Good morning"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := persona.Parse(personaName)
			if err != nil {
				return err
			}

			relay, err := a.newDownloader(server)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}

			n, err := relay.Download(cmd.Context(), strings.Join(args, " "), p.Language(), f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(output)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", fmt.Sprintf("http://localhost:%s", a.cfg.Port), "Relay base URL")
	cmd.Flags().StringVarP(&personaName, "persona", "p", string(persona.Default), "Voice persona, selects the language")
	cmd.Flags().StringVarP(&output, "output", "o", "speech.mp3", "Output file")
	_ = cmd.RegisterFlagCompletionFunc("persona", completePersonas)
	return cmd
}
