package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDownloadCmd creates the 'download' subcommand, which fetches a
// comic's selected chapters and optionally packages each as PDF or zip.
func newDownloadCmd() *cobra.Command {
	var (
		site     string
		comicid  string
		chapters string
		output   string
		asPDF    bool
		asZip    bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download chapters of a comic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if site == "" || comicid == "" {
				return fmt.Errorf("--site and --comicid are required")
			}
			if output == "" {
				output = cfg.Download.Dir
			}
			ctx := cmd.Context()

			book, err := svc.ComicBook(ctx, site, comicid)
			if err != nil {
				return err
			}
			item := book.Item()
			fmt.Printf("%s (%s) — %d chapters\n", item.Name, item.Status, len(item.Chapters))

			selected, err := book.SelectChapters(chapters)
			if err != nil {
				return err
			}

			var incomplete int
			for _, ch := range selected {
				switch {
				case asPDF:
					out, err := ch.SaveAsPDF(ctx, output)
					if err != nil {
						return fmt.Errorf("chapter %d: %w", ch.Number(), err)
					}
					fmt.Printf("  %4d %s -> %s\n", ch.Number(), ch.Title(), out)
				case asZip:
					out, err := ch.SaveAsZip(ctx, output)
					if err != nil {
						return fmt.Errorf("chapter %d: %w", ch.Number(), err)
					}
					fmt.Printf("  %4d %s -> %s\n", ch.Number(), ch.Title(), out)
				default:
					report, dir, err := ch.Save(ctx, output)
					if err != nil {
						return fmt.Errorf("chapter %d: %w", ch.Number(), err)
					}
					fmt.Printf("  %4d %s -> %s (written=%d skipped=%d failed=%d)\n",
						ch.Number(), ch.Title(), dir,
						report.Written, report.Skipped, len(report.Failed))
					if !report.Complete() {
						incomplete++
					}
				}
			}
			if incomplete > 0 {
				logger.Warn("some chapters are incomplete, rerun to retry",
					zap.Int("chapters", incomplete))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "site key (see 'comicdl sites')")
	cmd.Flags().StringVarP(&comicid, "comicid", "c", "", "site-native comic id")
	cmd.Flags().StringVar(&chapters, "chapters", "", `chapter selection, e.g. "1-10,15,-1" (default all)`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&asPDF, "pdf", false, "package each chapter as a PDF")
	cmd.Flags().BoolVar(&asZip, "zip", false, "package each chapter as a zip archive")
	cmd.MarkFlagsMutuallyExclusive("pdf", "zip")

	return cmd
}
