package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comicdl/comicdl/internal/comic"
)

// newSearchCmd creates the 'search' subcommand. Without --site it fans
// the query out to every supported site.
func newSearchCmd() *cobra.Command {
	var (
		site string
		page int
		size int
	)

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search comics by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := cmd.Context()

			if site != "" {
				res, err := svc.Search(ctx, site, name, page, size)
				if err != nil {
					return err
				}
				printRows(res.Rows, site)
				return nil
			}

			res := svc.AggregateSearch(ctx, name, page, size)
			printRows(res.Rows, "")
			return nil
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "restrict to one site")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&size, "size", 20, "results per page")

	return cmd
}

func printRows(rows []comic.SearchRow, site string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	for _, row := range rows {
		s := row.Site
		if s == "" {
			s = site
		}
		fmt.Printf("%-10s %-10s %-8s %s\n", s, row.ComicID, row.Status, row.Name)
	}
	fmt.Printf("%d result%s\n", len(rows), plural(len(rows)))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
