package movies

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/crucial707/cinebrowse/cmd/cli/client"
	"github.com/crucial707/cinebrowse/cmd/cli/config"
	"github.com/crucial707/cinebrowse/cmd/cli/output"
	"github.com/spf13/cobra"
)

var lists = []string{"trending", "top_rated", "popular"}

// InitMovies registers the movies command on the root command.
func InitMovies(rootCmd *cobra.Command) {
	rootCmd.AddCommand(moviesCmd())
}

type movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"voteAverage"`
	ReleaseDate string  `json:"releaseDate"`
}

func moviesCmd() *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:       "movies [trending|top_rated|popular]",
		Short:     "List movies from one catalog listing",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: lists,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := "trending"
			if len(args) == 1 {
				list = args[0]
			}

			session, err := config.LoadSession()
			if err != nil {
				return err
			}

			var out struct {
				Results []movie `json:"results"`
			}
			if _, err := client.Call(http.MethodGet, "/catalog/"+list, session, nil, &out); err != nil {
				return err
			}
			results := out.Results
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), results)
			}
			rows := make([][]interface{}, 0, len(results))
			for _, m := range results {
				rows = append(rows, []interface{}{m.ID, m.Title, year(m.ReleaseDate), strconv.FormatFloat(m.VoteAverage, 'f', 1, 64)})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ID", "Title", "Year", "Rating"}, rows)
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No movies found.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many movies (0 for all)")
	return cmd
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return date
}
