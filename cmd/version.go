package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/htmlc/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Long: `Print the htmlc version.

Examples:
  htmlc version              # htmlc v1.2.3
  htmlc version --detailed   # also commit, build time, Go version and platform`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	detailed, _ := cmd.Flags().GetBool("detailed")
	if detailed {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), version.Banner())
	return nil
}
