package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/plan"
	"github.com/terrane/terrane/storage"
)

var applyCommand = &cobra.Command{
	Use:   "apply [dir]",
	Short: "Create, update or delete resources to match the configuration",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		os.Exit(runApply(cmd, target))
	},
}

func init() {
	cmd.AddCommand(applyCommand)
}

func runApply(cmd *cobra.Command, target string) int {
	reg := newRegistry()
	loader := &config.Loader{}
	graph, proj, rootDir := loadConfig(loader, reg, target)

	kv, closeState := openState(cmd, reg, rootDir)
	defer closeState()

	ctx := signalContext(context.Background())

	unlock := lockProject(ctx, kv, proj.Name)
	defer unlock()

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
		printOutputs(ctx, kv, proj.Name, graph)
		return 0
	}

	fmt.Printf("Changes for project %s:\n\n", proj.Name)
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
	printOutputs(ctx, kv, proj.Name, graph)
	return 0
}

// printOutputs evaluates the configured output bindings against stored
// records and prints them.
func printOutputs(ctx context.Context, kv *storage.KV, project string, graph *resource.Graph) {
	if len(graph.Outputs) == 0 {
		return
	}
	records, err := kv.List(ctx, project)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	values, err := outputValues(graph, records)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println("\nOutputs:")
	writeValues(os.Stdout, values)
}
