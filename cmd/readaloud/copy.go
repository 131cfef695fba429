package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var errNothingToCopy = errors.New("nothing to copy")

// clipboardWriter is the host clipboard
type clipboardWriter interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "copy TEXT...",
		Short:   "Copy text to the clipboard",
		Example: `  readaloud copy "xin chào"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errNothingToCopy
			}

			if err := a.newClipboard().WriteAll(text); err != nil {
				return fmt.Errorf("failed to copy: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Copied to clipboard")
			return nil
		},
	}
}
