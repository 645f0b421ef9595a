package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wippyai/wren-bridge/config"
)

func main() {
	var (
		dir         string
		logLevel    string
		gcThreshold int
		metricsAddr string
		list        bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:          "run [flags] [script.wren]",
		Short:        "Run a script with the Go foreign bindings loaded",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			cfg, err := config.Resolve(dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitUsage)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("gc-threshold") {
				cfg.VM.GCThreshold = gcThreshold
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}

			a, err := newApp(ctx, cfg, os.Stdout, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitUsage)
			}

			code := exitOK
			switch {
			case list:
				a.list(os.Stdout)
			case interactive || len(args) == 0:
				if err := runInteractive(ctx, a); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					code = exitSoftware
				}
			default:
				code = a.runFile(ctx, args[0])
			}
			a.Close(context.Background())
			os.Exit(code)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "directory to search for wren.toml and .env")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&gcThreshold, "gc-threshold", 0, "foreign allocations between collections, negative disables")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list foreign bindings and exit")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start the REPL")

	if err := cmd.Execute(); err != nil {
		os.Exit(exitUsage)
	}
}
