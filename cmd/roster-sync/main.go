// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Command roster-sync is the scheduled/ad-hoc runner and Sync API server
// entry point.
package main

import (
	"os"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/cmd/roster-sync/commands"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/log"
)

func main() {
	log.InitStructureLogConfig()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
