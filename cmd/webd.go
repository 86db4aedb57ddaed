/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/daemon/webd"
	"github.com/rotblauer/catfuse/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long: `Serves tracking sessions over HTTP.

Clients post samples to /sessions/{id}/samples and read the live
estimate and activity back. Finalized records are stored under the
datadir and, with INFLUXDB_* set, exported to InfluxDB.
Websocket clients on /socket receive estimates as they are fused.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		config := params.DefaultWebDaemonConfig()
		config.ListenerConfig = params.ListenerConfig{
			Network: viper.GetString("webd.network"),
			Address: viper.GetString("webd.address"),
		}
		config.DataDir = viper.GetString("webd.datadir")
		if config.DataDir == "" {
			config.DataDir = params.DatadirRoot
		}
		config.StoreRecords = viper.GetBool("webd.store")
		config.ArchiveSamples = viper.GetBool("webd.archive")
		config.Token = viper.GetString("webd.token")
		config.SessionTTL = viper.GetDuration("webd.session-ttl")
		config.Route = routeConfig()

		server, err := webd.NewWebDaemon(config)
		if err != nil {
			slog.Error("Failed to create web daemon", "error", err)
			os.Exit(1)
		}

		ctx, cancel := common.InterruptContext(context.Background())
		defer cancel()
		if err := server.Run(ctx); err != nil {
			slog.Error("Web daemon failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	pFlags := webdCmd.PersistentFlags()
	pFlags.AddFlagSet(listenerFlagSet("webd.listen", defaults.ListenerConfig))
	pFlags.String("webd-datadir", "", "records directory (default is --datadir)")
	pFlags.Bool("store", defaults.StoreRecords, "store finalized records")
	pFlags.Bool("archive", defaults.ArchiveSamples, "append uploaded samples to gzipped archives under the datadir")
	pFlags.String("token", defaults.Token, "token required to post samples (env CATFUSE_TOKEN)")
	pFlags.Duration("session-ttl", defaults.SessionTTL, "finalize and drop sessions idle this long")

	for key, name := range map[string]string{
		"webd.network":     "network",
		"webd.address":     "address",
		"webd.datadir":     "webd-datadir",
		"webd.store":       "store",
		"webd.archive":     "archive",
		"webd.token":       "token",
		"webd.session-ttl": "session-ttl",
	} {
		if err := viper.BindPFlag(key, pFlags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func listenerFlagSet(name string, defaults params.ListenerConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("network", defaults.Network, "network to listen on")
	fs.String("address", defaults.Address, "HTTP address to listen on")
	return fs
}
