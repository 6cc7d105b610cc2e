package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:           "terrane",
	Short:         "Terrane provisions cloud resources from declarative configuration",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cmd.PersistentFlags().String("state", "", "State location. A file path for local state, or dynamodb://<table> for shared state.")
	cmd.PersistentFlags().Uint("concurrency", 0, "Maximum number of concurrent resource operations")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
}
