// Package main is the CLI entry point for the leadwire daemon.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbarden/leadwire/internals/conf"
	"github.com/mbarden/leadwire/leadwired/server"
	"github.com/mbarden/leadwire/sdk"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "leadwired",
		Short:   "Leadwire CRM daemon with an AI task agent",
		Version: conf.GetConfig().Version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverInstance := server.New()
			return serverInstance.Start()
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon if it is not already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverInstance := server.New()
			if err := serverInstance.SafeStart(); err != nil {
				return err
			}
			select {}
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := sdk.NewClient()
			if err := client.Shutdown(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Println("daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the running daemon's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := sdk.NewClient()
			version, err := client.Version(cmd.Context())
			if err != nil {
				fmt.Println("daemon not running")
				return nil
			}
			fmt.Println("daemon running, version " + version)
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, startCmd, stopCmd, statusCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
