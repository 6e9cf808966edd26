package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ogurasousui/minijobber-sync/internal/adapters/executor"
	"github.com/ogurasousui/minijobber-sync/internal/adapters/remote/postgrest"
	"github.com/ogurasousui/minijobber-sync/internal/adapters/repository/postgres"
	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/plan"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/syncer"
	"github.com/ogurasousui/minijobber-sync/internal/platform/config"
	"github.com/ogurasousui/minijobber-sync/internal/platform/db/migrations"
	pg "github.com/ogurasousui/minijobber-sync/internal/platform/db/postgres"
	"github.com/ogurasousui/minijobber-sync/internal/platform/logging"
)

// target は適用先ごとのマッピング読み込みとスクリプト適用の組です。
type target interface {
	identity.Store
	syncer.Applier
}

func run(ctx context.Context, out io.Writer, opts *rootOptions) error {
	cfg, err := config.Load(effectiveConfigPath(opts.configPath))
	if err != nil {
		return err
	}

	logger, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	apiKey := cfg.Remote.APIKey()
	if apiKey == "" {
		return fmt.Errorf("%w: export %s", errMissingCredential, cfg.Remote.APIKeyEnv)
	}

	tables, err := snapshot.RemoteTables(cfg.Remote.Tables)
	if err != nil {
		return err
	}
	tenant, err := tenantFromConfig(cfg.Tenant)
	if err != nil {
		return err
	}
	setup, err := migrations.SetupSQL()
	if err != nil {
		return err
	}

	dest, cleanup, err := newTarget(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fetcher := postgrest.NewClient(cfg.Remote.URL, apiKey, cfg.Remote.PageSize, cfg.Remote.Timeout)
	svc := syncer.NewService(syncer.Config{
		Loader:     snapshot.NewLoader(fetcher, tables, logger),
		Store:      dest,
		Planner:    plan.NewPlanner(tenant, defaultsFromConfig(cfg.Defaults), setup, nil),
		Applier:    dest,
		Writer:     executor.FileWriter{},
		ScriptPath: cfg.Output.ScriptPath,
		Logger:     logger,
	})

	logger.Info("sync started", "pharmacy", tenant.PharmacyID, "mode", cfg.Executor.Mode, "dry_run", opts.dryRun, "reset", opts.reset)
	res, err := svc.Run(ctx, syncer.Options{DryRun: opts.dryRun, Reset: opts.reset})
	if err != nil {
		return err
	}
	printSummary(out, res)
	return nil
}

func newTarget(ctx context.Context, cfg *config.Config, logger *slog.Logger) (target, func(), error) {
	switch cfg.Executor.Mode {
	case config.ExecutorModePostgres:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		dsn := cfg.Database.DSN()
		dest := executor.NewPostgres(executor.PostgresConfig{
			DB:           pool,
			Transactions: pg.NewTransactionManager(pool),
			Store:        postgres.NewIdentityRepository(pool),
			Migrate: func(context.Context) error {
				return migrations.Run("up", "", dsn, logger)
			},
			Target: fmt.Sprintf("postgres://%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name),
			Logger: logger,
		})
		return dest, pool.Close, nil
	default:
		dest, err := executor.NewPsql(cfg.Executor.Command, cfg.Executor.Workdir, logger)
		if err != nil {
			return nil, nil, err
		}
		return dest, func() {}, nil
	}
}

func tenantFromConfig(c config.TenantConfig) (plan.Tenant, error) {
	pharmacy, err := uuid.Parse(c.PharmacyID)
	if err != nil {
		return plan.Tenant{}, fmt.Errorf("tenant.pharmacy_id: %w", err)
	}
	tenant := plan.Tenant{PharmacyID: pharmacy, SyncRole: c.SyncRole}

	if c.FixedEmployee.Enabled() {
		local, err := uuid.Parse(c.FixedEmployee.LocalID)
		if err != nil {
			return plan.Tenant{}, fmt.Errorf("tenant.fixed_employee.local_id: %w", err)
		}
		tenant.Fixed = &plan.FixedEmployee{RemoteID: c.FixedEmployee.RemoteID, LocalID: local}
	}

	for _, raw := range c.PreservedStaffIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return plan.Tenant{}, fmt.Errorf("tenant.preserved_staff_ids: %w", err)
		}
		tenant.PreservedStaffIDs = append(tenant.PreservedStaffIDs, id)
	}
	return tenant, nil
}

func defaultsFromConfig(c config.DefaultsConfig) plan.Defaults {
	return plan.Defaults{
		EmployeeName:   c.EmployeeName,
		JobType:        c.JobType,
		HourlyRate:     c.HourlyRate,
		MonthlyPayment: c.MonthlyPayment,
		HoursBalance:   c.HoursBalance,
	}
}

func printSummary(w io.Writer, res *syncer.Result) {
	fmt.Fprintln(w, "Fetched:")
	for _, c := range snapshot.Collections {
		line := fmt.Sprintf("  %-17s %5d", c, res.Report.Counts[c])
		if err, failed := res.Report.Failed[c]; failed {
			line += fmt.Sprintf("  (fetch failed: %v)", err)
		}
		if n := res.Report.Invalid[c]; n > 0 {
			line += fmt.Sprintf("  (%d undecodable)", n)
		}
		fmt.Fprintln(w, line)
	}

	if len(res.Plan.Skips) > 0 {
		fmt.Fprintln(w, "Skipped (dangling references):")
		for _, s := range res.Plan.Skips {
			parts := []string{}
			if s.Dropped > 0 {
				parts = append(parts, fmt.Sprintf("%d dropped", s.Dropped))
			}
			if s.Cleared > 0 {
				parts = append(parts, fmt.Sprintf("%d references cleared", s.Cleared))
			}
			fmt.Fprintf(w, "  %-27s %s\n", s.Entity, strings.Join(parts, ", "))
		}
	}

	fmt.Fprintf(w, "Script: %s (%d statements, %d new mappings)\n",
		res.ScriptPath, len(res.Plan.Script.Statements()), len(res.Plan.NewMappings))

	if res.MappingsUnavailable {
		fmt.Fprintln(w, "Warning: existing id mappings could not be loaded; the script was planned without them and will abort if applied against a database that has mappings.")
	}
	if !res.Applied {
		fmt.Fprintln(w, "Dry run: nothing was applied. Review and apply manually:")
		for _, c := range res.ManualCommands {
			fmt.Fprintf(w, "  %s\n", c)
		}
		return
	}
	fmt.Fprintf(w, "Applied: %d rows inserted or upserted, %d rows updated\n", res.Apply.Inserted, res.Apply.Updated)
}
