package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/bronzeKV/cmd/kv"
	"github.com/ValentinKolb/bronzeKV/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "bkv",
		Short: "single node key-value store",
		Long: fmt.Sprintf(`bronzeKV (v%s)

A small key-value store server speaking a compact binary protocol over TCP
or Unix sockets, with an in-memory and a persistent (pebble) engine.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bronzeKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bronzeKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
