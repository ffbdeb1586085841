package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude/internal/toc"
)

func tocCmd(e *env) *cobra.Command {
	var (
		assignIDs   bool
		minHeadings int
	)

	c := &cobra.Command{
		Use:   "toc FILE",
		Short: "Generate the table of contents of an article page in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]

			info, err := os.Stat(file)
			if err != nil {
				return fmt.Errorf("%s not found", file)
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			opts := toc.Options{
				MinHeadings: e.cfg.TOC.MinHeadings,
				AssignIDs:   assignIDs || e.cfg.TOC.AssignIDs,
			}
			if cmd.Flags().Changed("min") {
				opts.MinHeadings = minHeadings
			}

			out, res, err := toc.Generate(string(src), opts)
			if errors.Is(err, toc.ErrTooFewHeadings) {
				fmt.Fprintln(cmd.OutOrStdout(), err)
				return nil
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(file, []byte(out), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}

			e.logger.Debug("Wrote table of contents", "file", file, "removed", res.Removed, "assigned", res.Assigned)
			printSummary(cmd.OutOrStdout(), "Table of contents "+file,
				row{"entries", okStyle.Render(fmt.Sprint(len(res.Headings)))},
				row{"levels", fmt.Sprintf("h%d-h%d", res.MinLevel, res.MaxLevel)},
				row{"replaced", fmt.Sprint(res.Removed)},
				row{"new ids", fmt.Sprint(res.Assigned)},
			)
			return nil
		},
	}

	c.Flags().BoolVar(&assignIDs, "assign-ids", false, "give headings without an id a slug id")
	c.Flags().IntVar(&minHeadings, "min", toc.DefaultMinHeadings, "fewest headings worth a table of contents")
	return c
}
