// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/fcavani/upnp"
	"github.com/spf13/cobra"
)

var scanFlags struct {
	uuid    string
	urn     string
	mx      int
	timeout time.Duration
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search for matching devices and print what replies",
	Long: `scan starts a node, issues a single M-SEARCH for the given uuid/urn
(both empty means ssdp:all), prints every message received or byebye
seen, and exits after the search times out.`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanFlags.uuid, "uuid", "", "restrict the search to this device uuid")
	f.StringVar(&scanFlags.urn, "urn", "", "restrict the search to this device/service urn")
	f.IntVar(&scanFlags.mx, "mx", 3, "advertised max response delay in seconds")
	f.DurationVar(&scanFlags.timeout, "timeout", 0, "extra time to wait after the search times out before exiting (0 = exit immediately)")
}

type printCallback struct {
	upnp.NopCallback
	done chan struct{}
}

func (p *printCallback) OnMessageReceived(s *upnp.Scanner, from *net.UDPAddr, reply bool, searchID int, msg upnp.SsdpMessage) {
	kind := "alive"
	if reply {
		kind = "reply"
	}
	loc := ""
	if msg.Location != nil {
		if l, err := msg.Location.Location(nil, nil); err == nil {
			loc = l
		}
	}
	fmt.Printf("%s from %v: uuid=%s urn=%s location=%s\n", kind, from, msg.UUID, msg.URN, loc)
}

func (p *printCallback) OnMessageByeBye(s *upnp.Scanner, from *net.UDPAddr, msg upnp.SsdpMessage) {
	fmt.Printf("byebye from %v: uuid=%s urn=%s\n", from, msg.UUID, msg.URN)
}

func (p *printCallback) OnSearchTimedOut(s *upnp.Scanner, searchID int) {
	fmt.Println("search timed out")
	close(p.done)
}

func runScan(cmd *cobra.Command, args []string) error {
	n := upnp.NewNode().SetMX(scanFlags.mx)
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Close()

	matcher := upnp.SsdpMessage{UUID: scanFlags.uuid, URN: scanFlags.urn}
	cb := &printCallback{done: make(chan struct{})}
	scanner := n.StartScan(matcher, cb)
	defer scanner.Close()

	scanner.Search(1)
	<-cb.done
	if scanFlags.timeout > 0 {
		time.Sleep(scanFlags.timeout)
	}
	return nil
}
