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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catfuse",
	Short: "Fuse location and motion samples into activity records",
	Long: `catfuse scores, fuses and classifies the samples of tracking sessions.

Samples are GeoJSON Point features (fixes) or JSON objects tagged
"kind": "inertial" or "kind": "pedometer". A finalized session is an
activity record: a label, a cleaned and route-snapped path, distance,
pace and confidence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.catfuse.yaml)")
	pFlags.Int("verbosity", int(slog.LevelInfo), "slog level: -4 debug, 0 info, 4 warn, 8 error")
	pFlags.Bool("log-json", false, "log JSON lines")
	pFlags.String("datadir", params.DatadirRoot, "data directory")
	pFlags.String("router", params.DefaultRouteConfig().Kind, "route snapping service: identity or osrm")
	pFlags.String("osrm-endpoint", params.DefaultRouteConfig().OSRMEndpoint, "OSRM base URL")

	for _, name := range []string{"verbosity", "log-json", "datadir", "router", "osrm-endpoint"} {
		if err := viper.BindPFlag(name, pFlags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".catfuse")
	}

	viper.SetEnvPrefix("CATFUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if d := viper.GetString("datadir"); d != "" {
		if expanded, err := homedir.Expand(d); err == nil {
			params.DatadirRoot = filepath.Clean(expanded)
		}
	}
}

// setDefaultSlog installs the default logger from the verbosity and
// log-json settings. Logs go to stderr; stdout carries output.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.Level(viper.GetInt("verbosity"))
	slog.SetDefault(slog.New(common.NewSlogHandler(os.Stderr, level, viper.GetBool("log-json"))))
}

// routeConfig builds the route snapping config from flags and config.
func routeConfig() *params.RouteConfig {
	c := params.DefaultRouteConfig()
	if v := viper.GetString("router"); v != "" {
		c.Kind = v
	}
	if v := viper.GetString("osrm-endpoint"); v != "" {
		c.OSRMEndpoint = v
	}
	return c
}
