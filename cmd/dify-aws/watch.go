package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/logging"
)

// newWatchCmd creates the "watch" subcommand for auto-previewing on config changes.
func newWatchCmd() *cobra.Command {
	var (
		opts     stackOptions
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-preview on config file changes",
		Long: `Watch monitors the deployment config file and re-runs preview on
each change. Nothing is deployed; run "up" when the plan looks right.

Examples:
    dify-aws watch
    dify-aws watch -c prod.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, debounce)
		},
	}

	addStackFlags(cmd, &opts)
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	return cmd
}

// runWatch monitors the config file and re-previews on changes.
func runWatch(opts stackOptions, debounce time.Duration) error {
	log := logging.WithComponent("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Watch the directory: editors replace files on save, which drops
	// watches placed on the file itself.
	absPath, err := filepath.Abs(opts.configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}
	log.Info().Str("config", absPath).Msg("watching")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("running initial preview")
	if err := runPreview(opts); err != nil {
		log.Error().Err(err).Msg("preview failed")
	}

	var debounceTimer *time.Timer
	previewChan := make(chan struct{}, 1)

	fmt.Println("\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case previewChan <- struct{}{}:
				default:
				}
			})

		case <-previewChan:
			log.Info().Msg("config changed, re-previewing")
			if err := runPreview(opts); err != nil {
				log.Error().Err(err).Msg("preview failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")

		case <-sigChan:
			fmt.Println("\nStopping watch...")
			return nil
		}
	}
}
