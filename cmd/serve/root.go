package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/bronzeKV/cmd/util"
	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/db/engines"
	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/server"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the bronzeKV server",
		Long:    `Start the bronzeKV server with the specified configuration. The configuration can be set via command line flags, a config file (--config) or environment variables. The format of the environment variables is BKV_<flag> (e.g. BKV_DATA_DIR=/var/lib/bkv)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupTransportFlags(ServeCmd)

	key := "engine"
	ServeCmd.PersistentFlags().String(key, string(db.ImplMemory), cmdUtil.WrapString("The storage engine (memory, pebble)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("The directory of the persistent engine (only for pebble)"))

	key = "sync-writes"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Sync every write to disk before acknowledging it (only for pebble)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address to serve Prometheus metrics on at /metrics (e.g. 127.0.0.1:9090, empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional file to write JSON logs to, rotated at 100 MB"))

	key = "config"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional config file (yaml, toml, json) with the same keys as the flags"))
}

// processConfig reads the configuration from the command line flags, the config file and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := cmdUtil.ReadConfigFile(); err != nil {
		return err
	}

	serveCmdConfig.Transport = cmdUtil.GetTransportConfig()
	serveCmdConfig.Engine = viper.GetString("engine")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.SyncWrites = viper.GetBool("sync-writes")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.Log = common.LogConf{
		Level: viper.GetString("log-level"),
		File:  viper.GetString("log-file"),
	}

	// settings files of older deployments name the address and path db_addr and db_path
	if !cmd.Flags().Changed("endpoint") && viper.IsSet("db_addr") {
		serveCmdConfig.Transport.Endpoint = viper.GetString("db_addr")
	}
	if !cmd.Flags().Changed("data-dir") && viper.IsSet("db_path") {
		serveCmdConfig.DataDir = viper.GetString("db_path")
	}

	return serveCmdConfig.Validate()
}

// run starts the bronzeKV server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.Log); err != nil {
		return err
	}
	defer common.SyncLoggers()

	t, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport.Type)
	if err != nil {
		return err
	}

	engine, err := engines.Open(engines.Options{
		Impl:       db.Implementation(serveCmdConfig.Engine),
		DataDir:    serveCmdConfig.DataDir,
		SyncWrites: serveCmdConfig.SyncWrites,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			Logger.Errorf("Failed to close engine: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(*serveCmdConfig, t, engine)
	if err := serv.Serve(ctx); err != nil {
		return err
	}

	Logger.Infof("Server stopped")
	return nil
}
