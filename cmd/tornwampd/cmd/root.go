// Package cmd provides the CLI commands for tornwampd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rexlunae/tornwamp/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tornwampd",
	Short: "tornwampd - a WAMP router",
	Long: `tornwampd is a standalone WAMP router, speaking both the rawsocket
(framed TCP) and WebSocket transports, routing PUBLISH/SUBSCRIBE and
CALL/REGISTER traffic between sessions within a realm.

Quick start:
  1. Create a config file: tornwampd.yaml
  2. Run: tornwampd start

Configuration:
  Config is loaded from tornwampd.yaml in the current directory,
  $HOME/.tornwamp/, or /etc/tornwamp/.

  Environment variables can override config values with the TORNWAMP_ prefix.
  Example: TORNWAMP_LISTENER_WEBSOCKET_ADDR=:9090

Commands:
  start       Start the router
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tornwampd.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
