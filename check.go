package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nf/bmo/assets"
)

func newCheckCmd(cfg *config) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check [DIR]",
		Short: "Check the asset tables and the files they name",
		Long: `Check loads faces.txt, audio.txt and timings.txt from DIR (default
$BMO_ASSET_DIR, or the current directory) and reports every problem it
finds: syntax errors, missing files, intents that have neither audio nor a
timing, and missing fixed assets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.AssetDir
			if len(args) == 1 {
				dir = args[0]
			}
			if !watch {
				return report(cmd.OutOrStdout(), dir)
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			return watchAssets(cmd.Context(), cmd.OutOrStdout(), dir, log)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "check again whenever DIR changes")
	return cmd
}

// report writes the problems found in dir to w.
func report(w io.Writer, dir string) error {
	errs := assets.Check(dir)
	for _, err := range errs {
		fmt.Fprintln(w, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %d problem(s)", dir, len(errs))
	}
	fmt.Fprintf(w, "%s: ok\n", dir)
	return nil
}

// watchAssets reports on dir now and after every change to it, until ctx
// is done.
func watchAssets(ctx context.Context, w io.Writer, dir string, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(dir); err != nil {
		return err
	}
	log = log.With().Str("component", "check").Logger()

	run := time.After(1 * time.Millisecond)
	for {
		select {
		case <-run:
			if err := report(w, dir); err != nil {
				log.Warn().Err(err).Msg("check failed")
			}
		case ev := <-watcher.Event:
			if !ev.IsAttrib() {
				log.Debug().Str("file", ev.Name).Msg("changed")
				run = time.After(100 * time.Millisecond)
			}
		case err := <-watcher.Error:
			log.Error().Err(err).Msg("watcher")
		case <-ctx.Done():
			return nil
		}
	}
}
