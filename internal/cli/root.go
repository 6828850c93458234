// Package cli implements fieldlogctl, the operator command-line client
// for the field-log job engine's HTTP control surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var flagAPIURL string

var rootCmd = &cobra.Command{
	Use:   "fieldlogctl",
	Short: "Operate the field-log job engine over its HTTP API",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fieldlogctl %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", defaultAPIURL(), "fieldlogd base URL")
	rootCmd.AddCommand(versionCmd)
}

func defaultAPIURL() string {
	if v := os.Getenv("FIELDLOGCTL_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func Execute() error {
	return rootCmd.Execute()
}
