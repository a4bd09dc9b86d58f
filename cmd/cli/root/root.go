package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the top-level cinebrowse command.
var RootCmd = &cobra.Command{
	Use:   "cinebrowse",
	Short: "Cinebrowse CLI",
	Long:  "Command line interface for signing in to Cinebrowse and browsing movie listings.",
	// Errors are printed by cobra; usage only for flag and argument mistakes.
	SilenceUsage: true,
}

// GetRoot returns the root command so subpackages can register on it.
func GetRoot() *cobra.Command {
	return RootCmd
}
