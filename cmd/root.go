package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the ktalk-mcp application
var rootCmd = &cobra.Command{
	Use:   "ktalk-mcp",
	Short: "MCP server for KTalk meeting recordings",
	Long: `ktalk-mcp is an MCP (Model Context Protocol) server that gives AI
assistants access to KTalk meeting recordings through a kts-ktalk-api-proxy
deployment.

It provides tools to list recordings, inspect their metadata, fetch
transcripts and download recording files.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ktalk-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
