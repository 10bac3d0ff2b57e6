// Package main provides the stbgraph binary entry point.
// Stbgraph turns the STB task description workbook into an RDF graph,
// enriches it with RDFS inference and uploads it to TriplyDB.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "stbgraph"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and its hints.
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		_, _ = fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "STB workbook to RDF pipeline",
		Long: `Stbgraph reads the STB (standaardtaakbeschrijving) workbook, emits one
RDF statement set per task row, merges the STB ontology, adds RDFS
entailments in the urn:inferred graph and writes the graph as N-Quads.

The graph can be uploaded to a TriplyDB dataset, replacing its contents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML or TOML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		transformCmd(opts),
		uploadCmd(opts),
		runCmd(opts),
		initCmd(opts),
		versionCmd(),
	)
	return cmd
}

func transformCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Build the graph from the workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if opts.watch {
				return app.Watch(cmd.Context())
			}
			_, err = app.Transform(cmd.Context())
			return err
		},
	}
	addPipelineFlags(cmd, opts)
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Run again whenever an input changes")
	return cmd
}

func uploadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload the graph to TriplyDB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = app.Upload(cmd.Context())
			return err
		},
	}
}

func runCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the graph and upload it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			// Fail before the transform when the upload cannot happen.
			if err := app.cfg.ValidateUpload(); err != nil {
				return err
			}
			if _, err := app.Transform(cmd.Context()); err != nil {
				return err
			}
			_, err = app.Upload(cmd.Context())
			return err
		},
	}
	addPipelineFlags(cmd, opts)
	return cmd
}

func initCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "stbgraph.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			return writeDefaultConfig(path, cmd.OutOrStdout())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func addPipelineFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "", "Workbook path or glob (overrides source.path)")
	f.StringVar(&opts.sheet, "sheet", "", "Worksheet name (overrides source.sheet)")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (overrides output.path)")
	f.StringVar(&opts.format, "format", "", "Output format: nquads, ntriples, turtle")
	f.StringVar(&opts.engine, "engine", "", "Reasoner: builtin or eye")
	f.StringVar(&opts.backend, "store", "", "Statement store: memory or sqlite")
}
