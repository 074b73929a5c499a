// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package commands

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/infrastructure/idpclient"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/infrastructure/lmsstore"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/jobstore"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/schema"
	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/syncengine"
)

// wiringConfig holds every environment-derived setting shared by the
// sync and serve subcommands.
type wiringConfig struct {
	JobDBPath        string
	LMSDBPath        string
	SchemaFile       string
	ParentCategoryID int64
	DryRun           bool
	HTTPAddr         string
}

func wiringFromEnv() wiringConfig {
	cfg := wiringConfig{
		JobDBPath: "roster-sync-jobs.db",
		LMSDBPath: "roster-sync-lms.db",
		HTTPAddr:  ":8080",
	}
	if v := os.Getenv("ROSTER_SYNC_JOB_DB"); v != "" {
		cfg.JobDBPath = v
	}
	if v := os.Getenv("ROSTER_SYNC_LMS_DB"); v != "" {
		cfg.LMSDBPath = v
	}
	if v := os.Getenv("ROSTER_SYNC_SCHEMA_FILE"); v != "" {
		cfg.SchemaFile = v
	}
	if v := os.Getenv("ROSTER_SYNC_PARENT_CATEGORY_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ParentCategoryID = n
		}
	}
	if os.Getenv("ROSTER_SYNC_DRY_RUN") == "true" {
		cfg.DryRun = true
	}
	if v := os.Getenv("ROSTER_SYNC_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	return cfg
}

// loadSchemas reads naming schemas from cfg.SchemaFile if set, otherwise
// falls back to the built-in defaults (spec §6 naming_schemas).
func loadSchemas(cfg wiringConfig) ([]model.NamingSchema, error) {
	if cfg.SchemaFile == "" {
		return schema.DefaultSchemas(), nil
	}

	data, err := os.ReadFile(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var schemas []model.NamingSchema
	if err := yaml.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}
	return schemas, nil
}

// wiring bundles the live stores and engine factory a command needs,
// plus a close function releasing both sqlite connections.
type wiring struct {
	Jobs      *jobstore.Store
	LMS       *lmsstore.Store
	NewEngine func() *syncengine.Engine
	Close     func()
}

func buildWiring(cfg wiringConfig) (*wiring, error) {
	schemas, err := loadSchemas(cfg)
	if err != nil {
		return nil, err
	}

	jobs, err := jobstore.Open(cfg.JobDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening job store: %w", err)
	}

	lms, err := lmsstore.Open(cfg.LMSDBPath)
	if err != nil {
		jobs.Close()
		return nil, fmt.Errorf("opening lms store: %w", err)
	}

	idpCfg := idpclient.NewConfigFromEnv()
	idp, err := idpclient.New(idpCfg)
	if err != nil {
		jobs.Close()
		lms.Close()
		return nil, fmt.Errorf("constructing idp client: %w", err)
	}

	processor := schema.NewProcessor(schemas, schema.NewTransformer(nil))

	engineCfg := syncengine.DefaultConfig()
	engineCfg.Schemas = schemas
	engineCfg.ParentCategoryID = cfg.ParentCategoryID
	engineCfg.DryRun = cfg.DryRun

	newEngine := func() *syncengine.Engine {
		return &syncengine.Engine{
			IdP:        idp,
			Users:      lms.Users(),
			Courses:    lms.Courses(),
			Categories: lms.Categories(),
			Enrolments: lms.Enrolments(),
			Jobs:       jobs,
			Processor:  processor,
			Cfg:        engineCfg,
		}
	}

	return &wiring{
		Jobs:      jobs,
		LMS:       lms,
		NewEngine: newEngine,
		Close: func() {
			jobs.Close()
			lms.Close()
		},
	}, nil
}
