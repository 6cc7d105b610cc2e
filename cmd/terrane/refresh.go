package main

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/ctyext"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/schema"
	"github.com/terrane/terrane/storage"
)

var refreshCommand = &cobra.Command{
	Use:   "refresh [dir]",
	Short: "Update recorded outputs from the live resources",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		os.Exit(runRefresh(cmd, target))
	},
}

func init() {
	cmd.AddCommand(refreshCommand)
}

func runRefresh(cmd *cobra.Command, target string) int {
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

	failed := 0
	for _, addr := range sortedKeys(records) {
		if ctx.Err() != nil {
			break
		}
		rec := records[addr]
		if err := refreshRecord(ctx, kv, reg, proj.Name, rec); err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", addr, err)
			failed++
			continue
		}
		fmt.Printf("  %s\n", addr)
	}

	fmt.Printf("\nRefreshed %d of %d resources.\n", len(records)-failed, len(records))
	if failed > 0 || ctx.Err() != nil {
		return exitFailure
	}
	return 0
}

// refreshRecord reads the live state for a recorded resource and stores the
// updated outputs.
func refreshRecord(ctx context.Context, kv *storage.KV, reg *resource.Registry, project string, rec *resource.Record) error {
	def, err := reg.New(rec.Type)
	if err != nil {
		return err
	}
	if !rec.Output.IsNull() {
		if err := ctyext.FromCtyValue(rec.Output, def, schema.FieldName); err != nil {
			return errors.Wrap(err, "set output")
		}
	}
	if !rec.Input.IsNull() {
		if err := ctyext.FromCtyValue(rec.Input, def, schema.FieldName); err != nil {
			return errors.Wrap(err, "set input")
		}
	}

	if err := def.Read(ctx, &resource.ReadRequest{Auth: envAuth{}}); err != nil {
		return err
	}

	outputType := schema.Fields(reflect.TypeOf(def)).Outputs().CtyType()
	output, err := ctyext.ToCtyValue(def, outputType, schema.FieldName)
	if err != nil {
		return errors.Wrap(err, "convert output values")
	}

	updated := &resource.Record{
		Type:   rec.Type,
		Name:   rec.Name,
		Input:  rec.Input,
		Output: output,
		Deps:   rec.Deps,
	}
	return kv.Put(ctx, project, updated)
}

// envAuth provides credentials from the environment.
type envAuth struct{}

func (envAuth) AWS() (aws.CredentialsProvider, error) {
	cfg, err := external.LoadDefaultAWSConfig()
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return cfg.Credentials, nil
}
