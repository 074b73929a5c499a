// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

var syncOptions model.Options

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single ad-hoc sync to completion",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncOptions.SuspendUsers, "suspend-users", true, "suspend LMS users absent from the IdP roster")
	syncCmd.Flags().BoolVar(&syncOptions.UnenrollUsers, "unenroll-users", true, "unenrol users no longer members of their synced group")
	syncCmd.Flags().BoolVar(&syncOptions.AutoEnrollTeachers, "auto-enroll-teachers", true, "enrol detected teachers as editingteacher")
	syncCmd.Flags().BoolVar(&syncOptions.AutoEnrollStudents, "auto-enroll-students", true, "enrol remaining members as student")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := wiringFromEnv()
	w, err := buildWiring(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	syncID := uuid.NewString()
	req := model.SyncRequest{
		SyncID:    syncID,
		ActorID:   "cli",
		Direction: model.DirectionIdPToLMS,
		Options:   syncOptions,
	}

	now := time.Now()
	if err := w.Jobs.Insert(ctx, model.Job{
		SyncID: syncID, ActorID: req.ActorID, Direction: req.Direction, Status: model.JobPending,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("recording job row: %w", err)
	}

	engine := w.NewEngine()
	job, err := engine.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("sync run failed: %w", err)
	}

	slog.Info("sync run finished", "sync_id", job.SyncID, "status", job.Status,
		"created", job.Created, "updated", job.Updated, "deleted", job.Deleted, "errors", job.ErrorCount)

	if job.Status != model.JobCompleted {
		return fmt.Errorf("sync run ended with status %s", job.Status)
	}
	return nil
}
