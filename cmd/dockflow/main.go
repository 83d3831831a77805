// Dockflow CLI — управление узлами, dispatch и расписаниями через HTTP API.
//
// Использование:
//
//	dockflow [--api-url URL] [--json] <command> <subcommand> [flags]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/dockflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("DOCKFLOW_API"); v != "" {
		defaultURL = v
	}

	rootCmd := &cobra.Command{
		Use:           "dockflow",
		Short:         "Dockflow CLI — Docker action nodes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL (env DOCKFLOW_API)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewNodeCmd(clientFn, outputFn),
		cli.NewDispatchCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewActionsCmd(clientFn, outputFn),
		cli.NewSearchCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
