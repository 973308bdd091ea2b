// ABOUTME: The version command
// ABOUTME: Prints the build identity stamped in at link time
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cambox-project/cambox-go/internal/version"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
