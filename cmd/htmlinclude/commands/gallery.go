package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude/internal/gallery"
)

func galleryCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "gallery [DIR]",
		Short: "Generate thumbnails and pages for a photo gallery",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			g := e.cfg.Gallery
			n, err := gallery.Generate(cmd.Context(), gallery.Options{
				Dir:         dir,
				PhotoDir:    g.PhotoDir,
				ThumbDir:    g.ThumbDir,
				PagesDir:    g.PagesDir,
				IndexFile:   g.IndexFile,
				Header:      g.Header,
				Footer:      g.Footer,
				PhotoPage:   g.PhotoPage,
				ThumbSize:   g.ThumbSize,
				JPEGQuality: g.JPEGQuality,
				Workers:     e.cfg.Concurrency,
				Logger:      e.logger,
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), "Gallery "+dir,
				row{"photos", okStyle.Render(fmt.Sprint(n))},
				row{"index", g.IndexFile},
				row{"thumbnails", fmt.Sprintf("%s (%dpx)", g.ThumbDir, g.ThumbSize)},
				row{"time", elapsed(start)},
			)
			return nil
		},
	}
	return c
}
