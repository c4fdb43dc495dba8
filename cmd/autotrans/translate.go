package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/scanner"
)

func (a *app) translateCmd() *cobra.Command {
	var (
		lang    string
		output  string
		dryRun  bool
		jsonOut bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "translate FILE",
		Short: "Translate an HTML page",
		Long: `Translate the text of an HTML page. Each translated element keeps its
original text in data-original-text, so the page can be restored later.

The language defaults to the preferred one set with "autotrans lang".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, closePrefs, err := a.preferences()
			if err != nil {
				return err
			}
			defer closePrefs()

			target, err := a.language(ctx, p, lang)
			if err != nil {
				return err
			}

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			if dryRun {
				return a.dryRun(doc, filepath.Base(args[0]), target, jsonOut)
			}

			client, closeClient, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer closeClient()

			if !quiet {
				fmt.Fprintf(a.stderr, "Translating %s to %s...\n", filepath.Base(args[0]), target)
			}

			result, err := a.newPipeline(client).Translate(ctx, doc, target)
			if err != nil {
				return fmt.Errorf("translation failed: %w", err)
			}
			if err := a.writeDocument(doc, output); err != nil {
				return err
			}

			if !quiet {
				fmt.Fprintf(a.stderr, "\nDone in %v\n", result.Elapsed.Round(time.Millisecond))
				fmt.Fprintf(a.stderr, "  Texts found:    %d\n", result.Candidates)
				fmt.Fprintf(a.stderr, "  Translated:     %d\n", result.Translated)
				fmt.Fprintf(a.stderr, "  Batches:        %d (%d failed)\n", result.Batches, result.FailedBatches)
				if result.Restored > 0 {
					fmt.Fprintf(a.stderr, "  Restored first: %d\n", result.Restored)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "target language code (e.g. hi, kn-IN)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the texts that would be translated without calling the backend")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the dry run as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

// dryRun lists the texts a pass would send to the backend.
func (a *app) dryRun(doc *dom.HTMLDocument, name, target string, jsonOut bool) error {
	var candidates []scanner.Candidate
	sc := a.newScanner()
	doc.Do(func(body dom.Element) {
		candidates = sc.Collect(body, target)
	})

	if jsonOut {
		type dryRunOutput struct {
			InputFile  string   `json:"input_file"`
			TargetLang string   `json:"target_lang"`
			Count      int      `json:"count"`
			Texts      []string `json:"texts"`
		}

		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.Text
		}

		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dryRunOutput{
			InputFile:  name,
			TargetLang: target,
			Count:      len(candidates),
			Texts:      texts,
		})
	}

	fmt.Fprintf(a.stdout, "Dry run: %s -> %s\n", name, target)
	fmt.Fprintf(a.stdout, "Found %d translatable texts:\n\n", len(candidates))
	for i, c := range candidates {
		text := c.Text
		if len([]rune(text)) > 60 {
			text = string([]rune(text)[:57]) + "..."
		}
		fmt.Fprintf(a.stdout, "%3d. <%s> %q\n", i+1, c.Owner.Tag(), text)
	}
	return nil
}

func (a *app) restoreCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore a translated HTML page to its source language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			restored, err := a.newPipeline(nil).Restore(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if err := a.writeDocument(doc, output); err != nil {
				return err
			}

			fmt.Fprintf(a.stderr, "Restored %d elements\n", restored)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
