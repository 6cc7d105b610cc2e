package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/resource/plan"
)

var planCommand = &cobra.Command{
	Use:   "plan [dir]",
	Short: "Show the changes required to reach the configured state",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}

		reg := newRegistry()
		loader := &config.Loader{}
		graph, proj, rootDir := loadConfig(loader, reg, target)

		kv, closeState := openState(cmd, reg, rootDir)
		defer closeState()

		ctx := signalContext(context.Background())

		records, err := kv.List(ctx, proj.Name)
		if err != nil {
			fatal(err)
		}

		differ := &plan.Differ{Registry: reg}
		p, err := differ.Diff(graph, records)
		if err != nil {
			fatal(err)
		}

		if !p.HasChanges() {
			fmt.Println("No changes. Resources match the configuration.")
			return
		}

		fmt.Printf("Changes for project %s:\n\n", proj.Name)
		writePlan(os.Stdout, p)
	},
}

func init() {
	cmd.AddCommand(planCommand)
}
