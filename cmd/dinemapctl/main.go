// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

// Command dinemapctl administers a Dinemap deployment from a shell.
//
// It opens the same durable store as the server, so it must run where the
// store is reachable. Memory caches live inside the server process and are
// not touched; use the HTTP cache routes for those.
//
//	dinemapctl status
//	dinemapctl invalidate --type reviews --name "Din Tai Fung"
//	dinemapctl token --user ops --role admin
//	dinemapctl sync-amenities --brand familymart
//	dinemapctl refresh
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
