// main.go — the screencap-mcp binary. Exactly two run modes (spec §6 "CLI
// / environment"): stdio (the default, no arguments) and an HTTP server
// exposing SSE and/or WebSocket transports. Grounded on the breeze-agent
// cobra command tree (root command plus verb subcommands, persistent
// flags for cross-cutting config).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brennhill/screencap-mcp/internal/config"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "screencap-mcp",
	Short: "Screen-capture MCP streaming server",
	Long: `screencap-mcp discovers displays and windows, captures frames with the
best available platform backend, and publishes them to MCP clients as
resources and live streams over stdio, SSE, and WebSocket.

Run with no arguments to speak MCP JSON-RPC over stdio. Run the "serve"
subcommand to expose the HTTP transports (SSE and/or WebSocket) instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runStdio(cmd.Context(), cfg)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (SSE and/or WebSocket transports)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("screencap-mcp v%s\n", version)
	},
}

var (
	flagHost      string
	flagPort      int
	flagEnableSSE bool
	flagEnableWS  bool
)

func init() {
	serveCmd.Flags().StringVar(&flagHost, "host", "", "override HOST env var")
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "override PORT env var")
	serveCmd.Flags().BoolVar(&flagEnableSSE, "sse", true, "enable the SSE transport")
	serveCmd.Flags().BoolVar(&flagEnableWS, "ws", true, "enable the WebSocket transport")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers serve's flags over the environment-derived Config: a
// flag the caller actually passed wins, otherwise the env (or its
// documented default) stands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = flagHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("sse") {
		cfg.EnableSSE = flagEnableSSE
	}
	if cmd.Flags().Changed("ws") {
		cfg.EnableWS = flagEnableWS
	}
	return cfg, nil
}
