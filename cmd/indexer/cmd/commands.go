package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/indexer/reconcile"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/searcher/paragraph"
)

func newReconcileCmd(opts *globalOptions) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reindex changed documents and drop deleted ones",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, s *session) error {
		report, err := reconcile.New(s.engine, s.stack.Documents, concurrency).Run(ctx)
		if err != nil {
			return err
		}
		return printReport(cmd, opts, report)
	})
	cmd.Flags().IntVar(&concurrency, "concurrency", reconcile.DefaultConcurrency, "documents fetched in parallel")
	return cmd
}

func newRebuildCmd(opts *globalOptions) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Clear the index and reindex every document",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, s *session) error {
		report, err := reconcile.New(s.engine, s.stack.Documents, concurrency).Rebuild(ctx)
		if err != nil {
			return err
		}
		return printReport(cmd, opts, report)
	})
	cmd.Flags().IntVar(&concurrency, "concurrency", reconcile.DefaultConcurrency, "documents fetched in parallel")
	return cmd
}

func printReport(cmd *cobra.Command, opts *globalOptions, r reconcile.Report) error {
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, unchanged %d, removed %d, failed %d in %s\n",
		r.Indexed, r.Unchanged, r.Removed, r.Failed, r.Took.Round(time.Millisecond))
	if r.Failed > 0 {
		return fmt.Errorf("%d documents failed", r.Failed)
	}
	return nil
}

func newQueryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <tag>",
		Short: "List the postings of one tag (exact, case-sensitive)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withSession(opts, func(ctx context.Context, s *session) error {
			postings := s.engine.Query(args[0])
			if opts.jsonOutput {
				return writeJSON(c.OutOrStdout(), postings)
			}
			for _, p := range postings {
				fmt.Fprintf(c.OutOrStdout(), "%s (%s)\n", p.DocumentID, p.DocumentName)
				for _, o := range p.Occurrences {
					fmt.Fprintf(c.OutOrStdout(), "  %d:%d  %s\n", o.LineIndex, o.MatchOffset, o.Context)
				}
			}
			return nil
		})(c, args)
	}
	return cmd
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search the way the search box does",
		Long: `search routes its argument like the search box: "#tag" goes to the
tag index, anything else is a case-insensitive paragraph search over the
notes and journals.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withSession(opts, func(ctx context.Context, s *session) error {
			searcher := paragraph.NewSearcher(s.stack.Documents, s.cfg.Search.MaxConcurrentFetches)
			var took time.Duration
			router := executor.New(s.engine, s.stack.Documents, searcher,
				executor.WithObserver(func(_ context.Context, _ *executor.Response, d time.Duration) { took = d }))
			resp, err := router.Execute(ctx, paragraph.Token{}, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(c.OutOrStdout(), resp)
			}
			out := c.OutOrStdout()
			for _, r := range resp.Results {
				fmt.Fprintf(out, "%s [%s] %s\n", r.DocumentID, r.DocumentKind, r.DocumentName)
				for _, m := range r.Matches {
					fmt.Fprintf(out, "  %d:%d  %s\n", m.ParagraphIndex, m.MatchOffset, strings.ReplaceAll(m.Context, "\n", " "))
				}
			}
			fmt.Fprintf(out, "%d documents (%s, %d skipped) in %s\n",
				len(resp.Results), resp.Kind, resp.Skipped, took.Round(time.Millisecond))
			return nil
		})(c, args)
	}
	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var showTags bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index size and persistence state",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, s *session) error {
		st := s.engine.Stats()
		if opts.jsonOutput {
			out := map[string]any{"stats": st}
			if showTags {
				out["tags"] = s.engine.Tags()
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "storage key:  %s\n", st.StorageKey)
		fmt.Fprintf(w, "documents:    %d\n", st.Documents)
		fmt.Fprintf(w, "tags:         %d\n", st.Tags)
		fmt.Fprintf(w, "postings:     %d\n", st.Postings)
		fmt.Fprintf(w, "occurrences:  %d\n", st.Occurrences)
		if showTags {
			for _, tc := range s.engine.Tags() {
				fmt.Fprintf(w, "  %-30s %d\n", tc.Tag, tc.Documents)
			}
		}
		return nil
	})
	cmd.Flags().BoolVar(&showTags, "tags", false, "also list every tag with its document count")
	return cmd
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the index",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		if !yes {
			return fmt.Errorf("refusing to clear the index without --yes")
		}
		return withSession(opts, func(ctx context.Context, s *session) error {
			s.engine.Clear(ctx)
			fmt.Fprintln(c.OutOrStdout(), "index cleared")
			return nil
		})(c, args)
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the index")
	return cmd
}
