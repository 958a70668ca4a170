// Package cmd wires the todoflow commands.
//
// Each service runs as its own subcommand: serve hosts the CRUD API,
// bridge hosts the MCP tool bridge, and gateway hosts the chat endpoint.
// They share one configuration surface (internal/config) so a single
// config file or environment drives all three.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "todoflow",
	Short: "Todoflow - todo tracking with an AI tool bridge",
	Long: `Todoflow is a todo tracker exposed three ways: a JSON CRUD API,
an MCP tool bridge over SSE sessions, and a model-backed chat gateway
that drives the tools on the user's behalf.

Run one of the subcommands to start a service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
