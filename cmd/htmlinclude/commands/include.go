package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude"
	"github.com/livefir/htmlinclude/internal/site"
)

func includeCmd(e *env) *cobra.Command {
	var (
		output  string
		baseURL string
		minify  bool
		quiet   bool
	)

	c := &cobra.Command{
		Use:   "include FILE",
		Short: "Resolve the includes of one HTML file",
		Long: "Resolve the includes of one HTML file. Fragment paths resolve relative to the\n" +
			"file, or against --base-url when given. Failed includes are replaced with the\n" +
			"error placeholder and listed on stderr; they do not fail the command.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			file := args[0]

			fetcher, err := e.httpFetcher(baseURL)
			if err != nil {
				return err
			}
			if fetcher == nil {
				if fetcher, err = e.fileFetcher(file); err != nil {
					return err
				}
			}
			if cache := e.cache(); cache != nil {
				fetcher = cache.Wrap(fetcher)
			}

			src, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer src.Close()

			loader := htmlinclude.New(fetcher, e.loaderOptions()...)

			var buf bytes.Buffer
			report, err := site.RenderPage(cmd.Context(), loader, src, &buf, minify || e.cfg.Minify)
			if err != nil {
				return err
			}

			if err := writeOutput(cmd.OutOrStdout(), output, buf.Bytes()); err != nil {
				return err
			}

			for _, f := range report.Failures() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", failStyle.Render("failed"), f.Path, f.Err)
			}
			if !quiet {
				printSummary(cmd.ErrOrStderr(), file,
					row{"includes", fmt.Sprint(report.Len())},
					row{"populated", countStyle(report.Populated(), okStyle)},
					row{"failed", countStyle(report.Failed(), failStyle)},
					row{"time", elapsed(start)},
				)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "", "write the result to this file instead of stdout")
	c.Flags().StringVar(&baseURL, "base-url", "", "fetch fragments over HTTP relative to this URL")
	c.Flags().BoolVar(&minify, "minify", false, "minify the result")
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the summary")
	return c
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
