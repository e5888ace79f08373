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
	"log"
	"os/user"
	"path/filepath"

	"github.com/jvanbruegge/AURIS/pus"
)

// StreamPacketFiles expands file patterns, reads each file as a packet
// stream and passes every packet to a callback
func StreamPacketFiles(args []string, callback func(p *pus.Packet)) {
	for _, basePattern := range args {
		pat := basePattern
		if len(pat) > 1 && pat[:2] == "~/" {
			usr, _ := user.Current()
			pat = filepath.Join(usr.HomeDir, pat[2:])
		}
		if !filepath.IsAbs(pat) {
			pat = filepath.Join(".", pat)
		}
		matches, err := filepath.Glob(pat)
		if err != nil {
			log.Printf("error expanding file pattern %s: %v\n", pat, err)
			continue
		}

		for _, fname := range matches {
			pktfile := pus.PacketFile{Filename: fname}
			if err := pktfile.Iterate(callback); err != nil {
				log.Printf("error reading %s: %v\n", fname, err)
			}
		}
	}
}

// StreamPacketFilesChannel is StreamPacketFiles feeding a channel.  The
// packet buffer is reused, so each packet is copied before sending.
func StreamPacketFilesChannel(args []string, channel chan pus.Packet) {
	StreamPacketFiles(args, func(p *pus.Packet) {
		buf := make(pus.Packet, p.Length()+7)
		copy(buf, *p)
		channel <- buf
	})
	close(channel)
}
