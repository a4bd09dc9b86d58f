package main

import (
	"os"

	"github.com/crucial707/cinebrowse/cmd/cli/auth"
	"github.com/crucial707/cinebrowse/cmd/cli/movies"
	"github.com/crucial707/cinebrowse/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	movies.InitMovies(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
