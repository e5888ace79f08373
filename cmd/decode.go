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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvanbruegge/AURIS/pus"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [packet files]",
	Short: "Decode parameter values from PUS packet files",
	Long: `Reads raw packet files, looks up each packet's layout in the parameter
dictionary and prints one line per decoded parameter value.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires at least one packet file")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		decodePacketFiles(args)
	},
}

var decodeDictionary string

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVarP(&decodeDictionary, "dictionary", "d", "./dictionary.json.gz", "Path of the parameter dictionary")
	decodeCmd.MarkFlagRequired("dictionary")
}

func decodePacketFiles(args []string) {
	logger := newLogger()

	dictionary, err := pus.LoadDictionary(decodeDictionary)
	if err != nil {
		logger.Error().Err(err).Msg("could not read the dictionary")
		return
	}

	startTime := time.Now()
	var packetCount int
	apidErrors := make(map[int]bool)

	StreamPacketFiles(args, func(p *pus.Packet) {
		pkt := *p

		// ignore short packets
		if len(pkt) < pkt.Length()+7 {
			logger.Warn().Int("apid", pkt.APID()).Msg("short packet, ignoring")
			return
		}

		packetCount++
		apid := pkt.APID()
		defs, ok := dictionary.PacketsByAPID(apid)
		if !ok {
			if !apidErrors[apid] {
				logger.Debug().Int("apid", apid).Msg("apid not in dictionary")
				apidErrors[apid] = true
			}
			return
		}

		stamp := pkt.Time()
		for _, def := range defs {
			for _, param := range def.Parameters {
				v, err := param.Extract(pkt)
				if err != nil {
					logger.Warn().Str("param", param.ID).Err(err).Msg("extraction failed")
					continue
				}
				fmt.Printf("%s,%s,%s,%s\n", stamp, def.Name, param.Name, v)
			}
		}
	})

	elapsed := time.Since(startTime)
	logger.Info().Int("packets", packetCount).Dur("elapsed", elapsed).Msg("done")
}
