// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package commands

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/syncapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Sync API HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := wiringFromEnv()
	w, err := buildWiring(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	svc := &syncapi.Service{Jobs: w.Jobs, NewEngine: w.NewEngine}
	router := syncapi.NewRouter(svc)

	slog.Info("sync api listening", "addr", cfg.HTTPAddr)
	return http.ListenAndServe(cfg.HTTPAddr, router)
}
