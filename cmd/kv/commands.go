package kv

import (
	"fmt"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: withConnection(func(conn client.IConnection, args []string) error {
			if err := conn.Set(kv.Key(args[0]), kv.Value(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		}),
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: withConnection(func(conn client.IConnection, args []string) error {
			value, found, err := conn.Get(kv.Key(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], found, value)
			return nil
		}),
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: withConnection(func(conn client.IConnection, args []string) error {
			if err := conn.Delete(kv.Key(args[0])); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		}),
	}
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Lists all key value pairs in a range (both bounds inclusive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lower, upper := kv.Unbounded(), kv.Unbounded()
			if cmd.Flags().Changed("from") {
				from, _ := cmd.Flags().GetString("from")
				lower = kv.Inclusive(kv.Key(from))
			}
			if cmd.Flags().Changed("to") {
				to, _ := cmd.Flags().GetString("to")
				upper = kv.Inclusive(kv.Key(to))
			}

			return withConnection(func(conn client.IConnection, _ []string) error {
				entries, err := conn.Scan(lower, upper)
				if err != nil {
					return err
				}
				count := 0
				for entry, err := range entries {
					if err != nil {
						return err
					}
					fmt.Printf("%s=%s\n", entry.Key, entry.Value)
					count++
				}
				fmt.Printf("(%d entries)\n", count)
				return nil
			})(cmd, args)
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: withConnection(func(conn client.IConnection, _ []string) error {
			if err := conn.Ping(); err != nil {
				return err
			}
			fmt.Printf("pong from %s\n", clientConfig.Transport.Endpoint)
			return nil
		}),
	}
)

func init() {
	scanCmd.Flags().String("from", "", "Lower bound of the scan (inclusive)")
	scanCmd.Flags().String("to", "", "Upper bound of the scan (inclusive)")
}

// withConnection opens a connection for the duration of a single command
func withConnection(fn func(conn client.IConnection, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		conn, err := client.NewConnection(*clientConfig, clientTransport)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(conn, args)
	}
}
