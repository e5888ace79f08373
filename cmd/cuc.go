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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jvanbruegge/AURIS/pus"
)

// cucCmd represents the cuc command
var cucCmd = &cobra.Command{
	Use:   "cuc <coarse> <fine>",
	Short: "Decode a CUC wire word into a human-readable time",
	Long: `Takes the 32-bit coarse and 16-bit fine wire fields of a CUC time
(decimal or 0x-prefixed hex) and prints the decoded time, its microsecond
count and the re-encoded wire fields.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("requires a coarse and a fine field")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		printCUC(args)
	},
}

var cucDelta bool

func init() {
	rootCmd.AddCommand(cucCmd)

	cucCmd.Flags().BoolVar(&cucDelta, "delta", false, "treat the time as a relative delta")
}

func printCUC(args []string) {
	coarse, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		fmt.Printf("bad coarse field %q: %v\n", args[0], err)
		return
	}
	fine, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		fmt.Printf("bad fine field %q: %v\n", args[1], err)
		return
	}

	t := pus.DecodeCUC(uint32(coarse), uint16(fine), cucDelta)
	fmt.Printf("time      = %s\n", t)
	fmt.Printf("seconds   = %d\n", t.Seconds())
	fmt.Printf("micro     = %d\n", t.Micro())
	fmt.Printf("micros    = %d\n", t.Micros())

	recoarse, refine := pus.EncodeCUC(t)
	fmt.Printf("re-encode = %#08x %#04x\n", recoarse, refine)
}
