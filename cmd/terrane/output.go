package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/resource"
	"github.com/zclconf/go-cty/cty"
)

var outputCommand = &cobra.Command{
	Use:   "output [dir]",
	Short: "Print the output values for the project",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}

		reg := newRegistry()
		loader := &config.Loader{}
		graph, proj, rootDir := loadConfig(loader, reg, target)

		if len(graph.Outputs) == 0 {
			fmt.Println("No outputs declared.")
			return
		}

		kv, closeState := openState(cmd, reg, rootDir)
		defer closeState()

		records, err := kv.List(context.Background(), proj.Name)
		if err != nil {
			fatal(err)
		}

		values, err := outputValues(graph, records)
		if err != nil {
			fatal(err)
		}
		writeValues(os.Stdout, values)
	},
}

func init() {
	cmd.AddCommand(outputCommand)
}

// outputValues evaluates the graph's output bindings against stored records.
func outputValues(graph *resource.Graph, records map[string]*resource.Record) (map[string]cty.Value, error) {
	recs := make([]*resource.Record, 0, len(records))
	for _, addr := range sortedKeys(records) {
		recs = append(recs, records[addr])
	}
	evalCtx := &resource.EvalContext{Variables: resource.EvalVariables(recs...)}

	values := make(map[string]cty.Value, len(graph.Outputs))
	for name, expr := range graph.Outputs {
		val, err := expr.Value(evalCtx)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluate output %s", name)
		}
		values[name] = val
	}
	return values, nil
}

func sortedKeys(records map[string]*resource.Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
