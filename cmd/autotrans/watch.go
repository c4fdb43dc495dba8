package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/pipeline"
	"github.com/ZaguanLabs/autotrans/session"
)

// idlePoll is how often a reload or refresh waits for a running pass to
// finish.
const idlePoll = 20 * time.Millisecond

func (a *app) watchCmd() *cobra.Command {
	var lang, output string

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Keep a translated copy of a page up to date",
		Long: `Translate FILE into the output file, then follow FILE: whenever it changes
its body is reloaded, and new or edited text is translated after a quiet
period and written out again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			ctx := cmd.Context()
			input := args[0]

			p, closePrefs, err := a.preferences()
			if err != nil {
				return err
			}
			defer closePrefs()

			doc, err := readDocument(input)
			if err != nil {
				return err
			}

			client, closeClient, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer closeClient()

			pl := a.newPipeline(client)
			sess, err := session.New(ctx, doc, pl, p,
				session.WithSourceLang(a.cfg.SourceLang),
				session.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}

			if lang != "" {
				if err := sess.ChangeLanguage(ctx, lang); err != nil {
					return err
				}
			}
			if err := sess.Refresh(ctx); err != nil {
				return err
			}
			if err := a.writeDocument(doc, output); err != nil {
				return err
			}

			w := pipeline.NewWatcher(doc, pl.Busy, func() {
				if err := sess.Refresh(ctx); err != nil && !errors.Is(err, autotrans.ErrPassRunning) {
					a.logger.Warn("refresh failed", zap.Error(err))
					return
				}
				if err := a.writeDocument(doc, output); err != nil {
					a.logger.Warn("writing output failed", zap.String("path", output), zap.Error(err))
				}
			},
				pipeline.WithDebounce(a.cfg.Pipeline.Debounce),
				pipeline.WithWatcherLogger(a.logger),
			)
			w.Start()
			defer w.Stop()

			return a.follow(ctx, input, func() error {
				if err := reload(ctx, doc, pl, input); err != nil {
					return err
				}
				// A pass started after reload saw the pipeline idle may have
				// scanned the old body, and the watcher ignores mutations
				// made while a pass runs.
				if err := refreshWhenIdle(ctx, sess); err != nil {
					return err
				}
				return a.writeDocument(doc, output)
			})
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "target language code (default: preferred language)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (required)")
	return cmd
}

// follow calls onChange whenever path is written or recreated, until ctx
// is done. The parent directory is watched so that editors replacing the
// file are noticed.
func (a *app) follow(ctx context.Context, path string, onChange func() error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	target := filepath.Clean(path)
	a.logger.Info("watching for changes", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := onChange(); err != nil {
				a.logger.Warn("reloading page failed", zap.String("path", target), zap.Error(err))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// reload swaps the document body for the file's once no pass is running.
// A pass may still start before the swap; callers follow up with
// refreshWhenIdle.
func reload(ctx context.Context, doc *dom.HTMLDocument, pl *pipeline.Pipeline, path string) error {
	for pl.Busy() {
		if err := pause(ctx); err != nil {
			return err
		}
	}

	f, err := os.Open(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return err
	}
	defer f.Close()
	return doc.ReplaceBody(f)
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// refreshWhenIdle runs a refresh, first waiting out any pass already
// running so the whole current body is scanned.
func refreshWhenIdle(ctx context.Context, r refresher) error {
	for {
		err := r.Refresh(ctx)
		if !errors.Is(err, autotrans.ErrPassRunning) {
			return err
		}
		if err := pause(ctx); err != nil {
			return err
		}
	}
}

func pause(ctx context.Context) error {
	timer := time.NewTimer(idlePoll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
