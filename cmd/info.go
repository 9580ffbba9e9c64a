package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newInfoCmd creates the 'info' subcommand, printing a comic's metadata
// and chapter index without downloading anything.
func newInfoCmd() *cobra.Command {
	var (
		site    string
		comicid string
		long    bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a comic's metadata and chapter index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if site == "" || comicid == "" {
				return fmt.Errorf("--site and --comicid are required")
			}

			book, err := svc.ComicBook(cmd.Context(), site, comicid)
			if err != nil {
				return err
			}
			item := book.Item()

			fmt.Printf("Name:    %s\n", item.Name)
			fmt.Printf("Author:  %s\n", item.Author)
			fmt.Printf("Status:  %s\n", item.Status)
			fmt.Printf("Source:  %s\n", item.SourceURL)
			if item.LastUpdated != "" {
				fmt.Printf("Updated: %s\n", item.LastUpdated)
			}
			fmt.Printf("Chapters: %d", len(item.Chapters))
			if len(item.Extras) > 0 {
				fmt.Printf(", extras: %d", len(item.Extras))
			}
			if len(item.Volumes) > 0 {
				fmt.Printf(", volumes: %d", len(item.Volumes))
			}
			fmt.Println()

			if long {
				for _, ch := range item.Chapters {
					fmt.Printf("  %4d  %s\n", ch.Number, ch.Title)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "site key")
	cmd.Flags().StringVarP(&comicid, "comicid", "c", "", "site-native comic id")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "list every chapter")

	return cmd
}

// newSitesCmd creates the 'sites' subcommand listing supported site keys.
func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List supported sites",
		RunE: func(*cobra.Command, []string) error {
			for _, name := range svc.Sites() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
