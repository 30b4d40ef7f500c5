// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fcavani/upnp"
	"github.com/fcavani/upnp/location"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var publishFlags struct {
	ttl      int
	mx       int
	httpPort int
	uuid     string
	urn      string
	name     string
	content  string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Announce a device over SSDP and serve its description",
	Long: `publish starts a node, publishes one device built from flags, and
blocks until interrupted. On SIGINT it withdraws the device (sending a
byebye) and closes cleanly.`,
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.IntVar(&publishFlags.ttl, "ttl", 300, "cache-control lifetime in seconds")
	f.IntVar(&publishFlags.mx, "mx", 5, "advertised max response delay in seconds")
	f.IntVar(&publishFlags.httpPort, "http-port", 49999, "description server port")
	f.StringVar(&publishFlags.uuid, "uuid", "", "device uuid (generated if omitted)")
	f.StringVar(&publishFlags.urn, "urn", upnp.DefaultDeviceURN("upnpctl", 1), "device urn")
	f.StringVar(&publishFlags.name, "name", "description.xml", "description resource name")
	f.StringVar(&publishFlags.content, "location", "<?xml version=\"1.0\"?><root/>", "description content, file path, or URL")
}

func runPublish(cmd *cobra.Command, args []string) error {
	id := publishFlags.uuid
	if id == "" {
		id = uuid.New().String()
	}

	n := upnp.NewNode().
		SetTTL(publishFlags.ttl).
		SetMX(publishFlags.mx).
		SetHTTPPort(publishFlags.httpPort)
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Close()

	msg := upnp.SsdpMessage{
		UUID:     id,
		URN:      publishFlags.urn,
		Location: location.New(publishFlags.name, publishFlags.content),
	}
	n.Publish(msg)
	fmt.Printf("published uuid=%s urn=%s http-port=%d\n", id, publishFlags.urn, publishFlags.httpPort)
	fmt.Println("press ctrl-c to withdraw and exit")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	n.Withdraw(msg)
	return nil
}
