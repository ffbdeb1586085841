package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude/internal/site"
)

func buildCmd(e *env) *cobra.Command {
	var (
		minify  bool
		exclude []string
		baseURL string
	)

	c := &cobra.Command{
		Use:   "build SRC OUT",
		Short: "Resolve includes across a site and write the result to OUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			fetcher, err := e.httpFetcher(baseURL)
			if err != nil {
				return err
			}

			summary, err := site.Build(cmd.Context(), site.Options{
				SourceDir:     args[0],
				OutputDir:     args[1],
				Exclude:       exclude,
				Minify:        minify || e.cfg.Minify,
				Fetcher:       fetcher,
				Cache:         e.cache(),
				LoaderOptions: e.loaderOptions(),
				Logger:        e.logger,
			})
			if err != nil {
				return err
			}

			for _, f := range summary.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s: %v\n", failStyle.Render("failed"), f.Page, f.Path, f.Err)
			}
			printSummary(cmd.OutOrStdout(), "Built "+args[1],
				row{"pages", fmt.Sprint(summary.Pages)},
				row{"assets", fmt.Sprint(summary.Assets)},
				row{"populated", countStyle(summary.Populated, okStyle)},
				row{"failed", countStyle(summary.Failed, failStyle)},
				row{"time", elapsed(start)},
			)
			return nil
		},
	}

	c.Flags().BoolVar(&minify, "minify", false, "minify processed pages")
	c.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of files to leave out")
	c.Flags().StringVar(&baseURL, "base-url", "", "fetch fragments over HTTP relative to this URL")
	return c
}
