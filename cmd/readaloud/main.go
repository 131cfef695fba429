package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexiqai/readaloud/internal/client"
	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/translate"
	"github.com/lexiqai/readaloud/internal/voice"
)

// translator is the part of the translation client the CLI uses
type translator interface {
	Translate(ctx context.Context, text, target string) (*translate.Result, error)
}

// downloader is the part of the relay client the CLI uses
type downloader interface {
	Download(ctx context.Context, text, lang string, w io.Writer) (int64, error)
}

// app holds the collaborators of every command. Tests replace the
// constructors with fakes.
type app struct {
	cfg *config.Config

	// newPlayback returns the voice catalog, the speaker and a function that
	// waits for queued playback to finish
	newPlayback   func() (voice.VoiceCatalogProvider, voice.Speaker, func())
	newTranslator func() translator
	newDownloader func(server string) (downloader, error)
	newClipboard  func() clipboardWriter
}

func newApp(cfg *config.Config) *app {
	return &app{
		cfg: cfg,
		newPlayback: func() (voice.VoiceCatalogProvider, voice.Speaker, func()) {
			e := voice.NewEspeak(0)
			return e, e, e.Close
		},
		newTranslator: func() translator {
			return translate.NewClient(cfg.TranslateURL)
		},
		newDownloader: func(server string) (downloader, error) {
			return client.NewRelay(server)
		},
		newClipboard: func() clipboardWriter {
			return systemClipboard{}
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "readaloud",
		Short: "Speak, translate and download text in Vietnamese and English",
		Long: `readaloud reads text aloud with a persona voice, translates between
Vietnamese and English, downloads MP3 speech from a readaloud relay and
copies text to the clipboard.

Personas: vi_male, vi_female, en_male, en_female.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := a.cfg.LogLevel
			if !verbose {
				level = "warn"
			}
			observability.InitLoggerTo(cmd.ErrOrStderr(), level, a.cfg.LogPretty)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured LOG_LEVEL instead of warn")

	rootCmd.AddCommand(
		newSpeakCmd(a),
		newVoicesCmd(a),
		newTranslateCmd(a),
		newDownloadCmd(a),
		newCopyCmd(a),
	)
	return rootCmd
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(newApp(cfg)).Execute(); err != nil {
		os.Exit(1)
	}
}
