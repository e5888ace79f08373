// Copyright © 2018 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jvanbruegge/AURIS/pus"
	"github.com/jvanbruegge/AURIS/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server [packet files]",
	Short: "Serve decoded parameter values to websocket clients",
	Long: `Starts the telemetry server.  Packet files given on the command line are
replayed into the server; without them the server only answers dictionary
requests until packets arrive another way.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer(args)
	},
}

var serverConfigFile string
var serverDictionary string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&serverConfigFile, "config", "c", "", "Path of a TOML config file")
	serverCmd.Flags().StringVarP(&serverDictionary, "dictionary", "d", "", "Overrides the dictionary named in the config")
}

func runServer(args []string) {
	logger := newLogger()

	cfg := server.DefaultConfig()
	if serverConfigFile != "" {
		var err error
		if cfg, err = server.LoadConfig(serverConfigFile); err != nil {
			logger.Error().Err(err).Msg("could not read the config")
			return
		}
	}
	if serverDictionary != "" {
		cfg.Dictionary = serverDictionary
	}

	channel := make(chan pus.Packet, 300)
	serv := server.Server{
		Config:     cfg,
		PacketChan: channel,
		Log:        logger,
	}

	if len(args) > 0 {
		go StreamPacketFilesChannel(args, channel)
	}

	if err := serv.Run(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}
