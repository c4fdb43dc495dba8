package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/autotrans"
)

func (a *app) langCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "lang [CODE]",
		Short: "Show or set the preferred language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tNATIVE\tDIR")
				for _, l := range autotrans.Languages() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Code, l.Name, l.NativeName, autotrans.GetDirection(l.Code))
				}
				return w.Flush()
			}

			ctx := cmd.Context()
			p, closePrefs, err := a.preferences()
			if err != nil {
				return err
			}
			defer closePrefs()

			if len(args) == 0 {
				code, err := a.language(ctx, p, "")
				if err != nil {
					return err
				}
				info := autotrans.LanguageInfo(code)
				fmt.Fprintf(a.stdout, "%s\t%s (%s)\n", info.Code, info.Name, info.NativeName)
				return nil
			}

			code, err := a.language(ctx, p, args[0])
			if err != nil {
				return err
			}
			if err := p.SetLanguage(ctx, code); err != nil {
				return err
			}
			info := autotrans.LanguageInfo(code)
			fmt.Fprintf(a.stdout, "Language set to %s (%s)\n", info.Name, info.NativeName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list supported languages")
	return cmd
}

func (a *app) detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect TEXT...",
		Short: "Guess the language of a text from its script",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := autotrans.DetectLanguage(strings.Join(args, " "))
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", code, autotrans.GetLanguageName(code), autotrans.GetDirection(code))
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "%s %s\n", autotrans.Name, autotrans.Version)
			if autotrans.GitCommit != "unknown" && autotrans.GitCommit != "" {
				fmt.Fprintf(a.stdout, "  commit:  %s\n", autotrans.GitCommit)
			}
			if autotrans.BuildDate != "unknown" && autotrans.BuildDate != "" {
				fmt.Fprintf(a.stdout, "  built:   %s\n", autotrans.BuildDate)
			}
		},
	}
}
