// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

// Package cli wires upnpctl's cobra command tree to the upnp library.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "upnpctl",
	Short: "Publish or scan UPnP 1.0 devices on the local network",
	Long: `upnpctl drives a single upnp.Node: publish a device's SSDP alive
announcements and description over HTTP, or scan for matching devices
and print what comes back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(scanCmd)
}
