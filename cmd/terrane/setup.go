package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/spf13/cobra"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/provider/aws"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/hcldecoder"
	"github.com/terrane/terrane/resource/reconciler"
	"github.com/terrane/terrane/storage"
	"github.com/terrane/terrane/storage/kvbackend"
	"go.uber.org/zap"
)

// Exit codes.
//
// Planning problems (invalid configuration, unreadable state) exit with 2.
// Execution failures exit with 1; the failures themselves are printed as
// part of the report.
const (
	exitFailure = 1
	exitUsage   = 2
)

func newRegistry() *resource.Registry {
	reg := &resource.Registry{}
	aws.Register(reg)
	return reg
}

// loadConfig loads and decodes the project configuration rooted at or above
// target. Diagnostics are printed and the process exits on any error.
func loadConfig(loader *config.Loader, reg *resource.Registry, target string) (*resource.Graph, *config.Project, string) {
	rootDir, err := loader.Root(target)
	if err != nil {
		fatal(err)
	}
	if rootDir == "" {
		fmt.Fprintln(os.Stderr, "Project not found. Create a .terrane/root file to mark the project root.")
		os.Exit(exitUsage)
	}

	body, diags := loader.Load(rootDir)
	if diags.HasErrors() {
		loader.WriteDiagnostics(os.Stderr, diags)
		os.Exit(exitUsage)
	}

	dec := &hcldecoder.Decoder{Registry: reg}
	graph, proj, diags := dec.DecodeBody(body)
	if diags.HasErrors() {
		loader.WriteDiagnostics(os.Stderr, diags)
		os.Exit(exitUsage)
	}
	if proj == nil {
		fmt.Fprintln(os.Stderr, "No project declared in configuration")
		os.Exit(exitUsage)
	}

	return graph, proj, rootDir
}

// openState opens the resource state store.
//
// By default, state is kept in a bolt file under the project directory. The
// --state flag overrides the file location, or selects the DynamoDB backend
// with dynamodb://<table>.
func openState(cmd *cobra.Command, reg *resource.Registry, rootDir string) (*storage.KV, func()) {
	loc, err := cmd.Flags().GetString("state")
	if err != nil {
		log.Fatalf("Get state flag: %v", err)
	}

	if strings.HasPrefix(loc, "dynamodb://") {
		table := strings.TrimPrefix(loc, "dynamodb://")
		cfg, err := external.LoadDefaultAWSConfig()
		if err != nil {
			fatal(err)
		}
		ddb := kvbackend.NewDynamoDB(cfg, table)
		return &storage.KV{Backend: ddb, Registry: reg}, func() {}
	}

	if loc == "" {
		loc = filepath.Join(rootDir, ".terrane", "state.db")
	}
	db, err := kvbackend.NewBoltWithFile(loc)
	if err != nil {
		if err == storage.ErrLockHeld {
			fmt.Fprintln(os.Stderr, "State is locked by another process")
			os.Exit(exitUsage)
		}
		fatal(err)
	}
	closer := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return &storage.KV{Backend: db, Registry: reg}, closer
}

// lockProject acquires the project lock when the backend requires explicit
// locking. The returned function releases the lock.
func lockProject(ctx context.Context, kv *storage.KV, project string) func() {
	locker, ok := kv.Backend.(storage.Locker)
	if !ok {
		// The backend serializes access on its own.
		return func() {}
	}
	if err := locker.Lock(ctx, project); err != nil {
		if err == storage.ErrLockHeld {
			fmt.Fprintf(os.Stderr, "Project %s is locked by another run\n", project)
			os.Exit(exitUsage)
		}
		fatal(err)
	}
	return func() {
		uctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := locker.Unlock(uctx, project); err != nil {
			fmt.Fprintf(os.Stderr, "Could not release lock for %s: %v\n", project, err)
		}
	}
}

func newReconciler(cmd *cobra.Command, kv *storage.KV, reg *resource.Registry) *reconciler.Reconciler {
	concurrency, err := cmd.Flags().GetUint("concurrency")
	if err != nil {
		log.Fatalf("Get concurrency: %v", err)
	}
	return &reconciler.Reconciler{
		State:       kv,
		Registry:    reg,
		Concurrency: concurrency,
		Logger:      buildLogger(cmd),
	}
}

func buildLogger(cmd *cobra.Command) *zap.Logger {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		log.Fatalf("Get verbose: %v", err)
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	return logger
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitUsage)
}
