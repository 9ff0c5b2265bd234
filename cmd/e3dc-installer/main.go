// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// e3dc-installer maintains an E3DC-Control appliance installation:
// ownership and modes, crontab entries, and the web UI's sudo grant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/e3dc-control/installer/cmd/e3dc-installer/commands"
	"github.com/e3dc-control/installer/lib/process"
)

func main() {
	process.Fatal(run())
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(nil).Execute(ctx, os.Args[1:])
}
