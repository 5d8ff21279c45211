package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgallion1/voybot/internal/confirm"
	"github.com/dgallion1/voybot/internal/pipeline"
)

func (a *app) runCmd() *cobra.Command {
	var (
		sel    pipeline.Selector
		opts   pipeline.Options
		params     []string
		report     string
		followUps  string
		listFormat string
	)
	cmd := &cobra.Command{
		Use:   "run <recipe>",
		Short: "Apply a recipe to the selected pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.cfg.DryRun = a.cfg.DryRun || opts.DryRun
			opts.DryRun = a.cfg.DryRun
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			p, err := parseParams(params)
			if err != nil {
				return err
			}
			opts.Params = p

			var c confirm.Confirmer = confirm.Always(false)
			if term.IsTerminal(int(os.Stdin.Fd())) {
				c = confirm.NewPrompt(os.Stdin, os.Stderr)
			}
			runner, _, _, cleanup, err := a.runner(ctx, pipeline.Deps{Confirmer: c})
			if err != nil {
				return err
			}
			defer cleanup()

			sum, err := runner.Run(ctx, args[0], sel, opts)
			printSummary(sum)
			if report != "" {
				if werr := os.WriteFile(report, []byte(sum.Markdown()), 0o644); werr != nil {
					a.log.Error("write report failed", "path", report, "error", werr)
				}
			}
			if followUps != "" {
				list, lerr := sum.FollowUpList(listFormat)
				if lerr != nil {
					return lerr
				}
				if werr := os.WriteFile(followUps, list, 0o644); werr != nil {
					a.log.Error("write follow-up list failed", "path", followUps, "error", werr)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&sel.Titles, "title", "t", nil, "page title (repeatable)")
	f.StringVarP(&sel.Category, "category", "c", "", "category whose members are processed")
	f.BoolVarP(&sel.Recursive, "recursive", "r", false, "descend into subcategories")
	f.StringVar(&sel.Template, "template", "", "process the pages using this template")
	f.IntVar(&sel.Namespace, "namespace", 0, "namespace of template users, -1 for all")
	f.IntVar(&sel.Limit, "limit", 0, "stop after this many pages")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "compute edits without saving")
	f.BoolVarP(&opts.AssumeYes, "yes", "y", false, "save without asking")
	f.BoolVar(&opts.Resume, "resume", false, "skip pages already done by this recipe")
	f.BoolVar(&opts.RequeueOnConflict, "requeue", false, "retry edit conflicts once at the end")
	f.Float64Var(&opts.MinOutputRatio, "min-output-ratio", 0, "refuse edits that shrink a page below this ratio")
	f.StringArrayVarP(&params, "param", "p", nil, "recipe parameter key=value (repeatable)")
	f.StringVar(&report, "report", "", "write a markdown report to this file")
	f.StringVar(&followUps, "follow-ups", "", "write the pages left for a human to this file")
	f.StringVar(&listFormat, "list-format", pipeline.ListWikitext, "follow-up list format: wikitext, json or text")
	return cmd
}

func parseParams(kvs []string) (pipeline.Params, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	p := pipeline.Params{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", kv)
		}
		p[strings.TrimSpace(k)] = v
	}
	return p, nil
}

func printSummary(s pipeline.Summary) {
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("%s %s%s: %d selected, %d processed, %d changed, %d saved, %d skipped, %d errors\n",
		s.Recipe, s.RunID, mode, s.Selected, s.Processed, s.Changed, s.Saved, s.Skipped, s.Errors)
	for _, f := range s.FollowUps {
		fmt.Printf("  follow-up %s: %s\n", f.Page, f.Reason)
	}
}

func (a *app) recipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the available recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, rc := range a.registry().List() {
				fmt.Printf("%-24s %s\n", rc.Name, rc.Description)
				fmt.Printf("%-24s steps: %s\n", "", strings.Join(rc.StepNames(), ", "))
			}
			return nil
		},
	}
}
