// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command flowgate-wl is the whitelist CLI spec.md §6 names as an
// external collaborator: "wl add <ip>" / "wl del <ip>" against the
// running daemon's whitelist table, rewritten from
// original_source/scripts/wl.c's bpf_obj_get/bpf_map_update_elem pair
// into an RPC call over internal/ctlsock's unix socket.
package main

import (
	"flag"
	"fmt"
	"os"

	"flowgate.dev/flowgate/internal/ctlsock"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-socket path] <add|del> <IP>\n", os.Args[0])
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("flowgate-wl", flag.ContinueOnError)
	socket := fs.String("socket", ctlsock.DefaultSocketPath, "path to the daemon's control socket")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) != 2 {
		usage()
		return 2
	}
	cmd, addr := rest[0], rest[1]
	if cmd != "add" && cmd != "del" {
		usage()
		return 2
	}

	client, err := ctlsock.Dial(*socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowgate-wl: %v\n", err)
		return 1
	}
	defer client.Close()

	switch cmd {
	case "add":
		err = client.WhitelistAdd(addr)
	case "del":
		err = client.WhitelistDel(addr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "flowgate-wl: %v\n", err)
		return 1
	}
	return 0
}
