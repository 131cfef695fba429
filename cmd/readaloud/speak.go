package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexiqai/readaloud/internal/persona"
	"github.com/lexiqai/readaloud/internal/voice"
)

func newSpeakCmd(a *app) *cobra.Command {
	var personaName string

	cmd := &cobra.Command{
		Use:   "speak TEXT...",
		Short: "Read text aloud with a persona voice",
		Long: `Speak plays the text through espeak-ng with the first installed voice whose
name contains the persona's voice (NamMinh, HoaiMy, Eric or Jenny).

Stock espeak-ng voices do not carry those names, so without them the text
is spoken with the default voice and a warning is printed.`,
		Example: `  readaloud speak "xin chào"
  readaloud speak --persona en_female "Good morning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := persona.Parse(personaName)
			if err != nil {
				return err
			}

			catalog, speaker, wait := a.newPlayback()
			defer wait()

			controller := voice.NewController(catalog, speaker)
			result, err := controller.SynthesizeAndPlay(cmd.Context(), strings.Join(args, " "), p)
			if err != nil {
				return err
			}

			if result.Warning != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, using the default voice\n", result.Warning)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Speaking with %s\n", result.Voice.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "p", string(persona.Default), "Voice persona")
	_ = cmd.RegisterFlagCompletionFunc("persona", completePersonas)
	return cmd
}

func completePersonas(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, p := range persona.All() {
		names = append(names, p.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
