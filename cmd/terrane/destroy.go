package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/plan"
)

var destroyCommand = &cobra.Command{
	Use:   "destroy [dir]",
	Short: "Delete all resources recorded for the project",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		os.Exit(runDestroy(cmd, target))
	},
}

func init() {
	cmd.AddCommand(destroyCommand)
}

func runDestroy(cmd *cobra.Command, target string) int {
	reg := newRegistry()
	loader := &config.Loader{}
	_, proj, rootDir := loadConfig(loader, reg, target)

	kv, closeState := openState(cmd, reg, rootDir)
	defer closeState()

	ctx := signalContext(context.Background())

	unlock := lockProject(ctx, kv, proj.Name)
	defer unlock()

	records, err := kv.List(ctx, proj.Name)
	if err != nil {
		fatal(err)
	}
	if len(records) == 0 {
		fmt.Println("No resources recorded.")
		return 0
	}

	// Diffing against an empty graph plans a delete for every record.
	differ := &plan.Differ{Registry: reg}
	p, err := differ.Diff(resource.NewGraph(), records)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Destroying project %s:\n\n", proj.Name)
	writePlan(os.Stdout, p)
	fmt.Println()

	rec := newReconciler(cmd, kv, reg)
	rep, err := rec.Execute(ctx, proj.Name, p)
	if err != nil {
		fatal(err)
	}

	writeReport(os.Stdout, rep)

	if !rep.OK() {
		return exitFailure
	}
	return 0
}
