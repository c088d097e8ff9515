package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/service"
)

type scrapeOptions struct {
	url      string
	platform string
	limit    int
	store    bool
}

type scrapeOutput struct {
	Platform string            `json:"platform"`
	URL      string            `json:"url"`
	Count    int               `json:"count"`
	Comments []scraper.Comment `json:"comments"`
}

func newScrapeCmd(rt *runtime) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes one page and prints its comments as JSON",
		Long: `scrape runs a single extraction and writes the comments to stdout. With --store
the comments are also scored, persisted and announced like an API analysis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts.platform = strings.ToLower(strings.TrimSpace(opts.platform))
			a, err := rt.buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.store {
				analysis, err := a.Comments.Analyze(ctx, opts.url, opts.platform, opts.limit)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", opts.url, err)
				}
				return printJSON(cmd.OutOrStdout(), analysis)
			}

			comments, err := a.Orchestrator.Scrape(ctx, scraper.ScrapeRequest{
				URL:      opts.url,
				Platform: opts.platform,
				Limit:    service.ClampLimit(opts.limit),
			})
			if err != nil {
				return fmt.Errorf("scrape %s: %w", opts.url, err)
			}
			return printJSON(cmd.OutOrStdout(), scrapeOutput{
				Platform: opts.platform,
				URL:      opts.url,
				Count:    len(comments),
				Comments: comments,
			})
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "page to scrape")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "platform name ("+strings.Join(scraper.KnownPlatforms, ", ")+")")
	cmd.Flags().IntVar(&opts.limit, "limit", service.DefaultLimit, "maximum number of comments")
	cmd.Flags().BoolVar(&opts.store, "store", false, "score, store and publish the comments")
	_ = cmd.MarkFlagRequired("url")      //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("platform") //nolint:errcheck // flag is defined above
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
