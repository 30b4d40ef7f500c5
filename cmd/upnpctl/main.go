// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Command upnpctl exercises the upnp library from a terminal: publish a
// device's SSDP presence and description, or scan for one.
package main

import (
	"fmt"
	"os"

	"github.com/fcavani/upnp/cmd/upnpctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "upnpctl:", err)
		os.Exit(1)
	}
}
