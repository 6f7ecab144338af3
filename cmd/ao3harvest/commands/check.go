package commands

import (
	"os"

	"ao3harvest/lib/serviceutil"
	"ao3harvest/services/consistency"

	"github.com/spf13/cobra"
)

var (
	checkCSV     *string
	checkContent *string
)

func init() {
	checkCSV = checkCmd.Flags().String("csv", "stories_metadata.csv", "Path to the metadata table.")
	checkContent = checkCmd.Flags().String("content", "content", "Path to the epub directory.")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--csv <path>] [--content <dir>]",
	Short: "Cross-checks the metadata table against the epub directory.",
	Run: func(cmd *cobra.Command, args []string) {
		report, err := consistency.Check(*checkCSV, *checkContent)
		if err != nil {
			serviceutil.Fatal("consistency check failed", err)
		}
		consistency.Render(os.Stdout, report)
		if !report.Consistent() {
			os.Exit(1)
		}
	},
}
