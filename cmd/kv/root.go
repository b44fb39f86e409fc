package kv

import (
	"github.com/ValentinKolb/bronzeKV/cmd/util"
	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	clientConfig    *common.ClientConfig
	clientTransport transport.IRPCClientTransport

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add connection flags to the KV command
	util.SetupTransportFlags(KeyValueCommands)
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient reads the client configuration and selects the transport
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	if err := clientConfig.Transport.Validate(); err != nil {
		return err
	}

	var err error
	clientTransport, err = util.GetClientTransport(clientConfig.Transport.Type)
	return err
}
