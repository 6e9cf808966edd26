//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/minijobber-sync/internal/adapters/executor"
	"github.com/ogurasousui/minijobber-sync/internal/adapters/remote/postgrest"
	repo "github.com/ogurasousui/minijobber-sync/internal/adapters/repository/postgres"
	"github.com/ogurasousui/minijobber-sync/internal/core/plan"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/syncer"
	"github.com/ogurasousui/minijobber-sync/internal/platform/config"
	"github.com/ogurasousui/minijobber-sync/internal/platform/db/migrations"
	pg "github.com/ogurasousui/minijobber-sync/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const (
	pharmacyID   = "e27c71c2-c33f-4207-8028-9071f70d4f67"
	fixedRemote  = "da2217dc-0933-4196-b6be-e76c50099ff5"
	fixedLocalID = "011695e8-9bd8-4ba5-9ba3-15ca37c319aa"
)

var remoteTables = map[string]string{
	"employees": `[
		{"id": "` + fixedRemote + `", "name": "Matthias Inhaber"},
		{"id": "e1", "name": "Sean O'Brien", "address": "Hauptstr. 1, 12345 Berlin", "phone": "0301234", "hourly_rate": 13.5},
		{"id": 2, "name": "Cher"}
	]`,
	"shifts":                    `[{"id": "s1", "name": "Früh", "start_time": "08:00", "end_time": "12:00", "hours": 4}]`,
	"schedules":                 `[{"id": "sc1", "employee_id": "e1", "shift_id": "s1", "date": "2024-05-02"}, {"id": "sc2", "employee_id": "ghost", "shift_id": "s1", "date": "2024-05-03"}]`,
	"work_records":              `[{"id": "w1", "schedule_id": "sc1", "actual_start_time": "08:05", "actual_end_time": "12:00", "actual_hours": 3.92}]`,
	"holidays":                  `[{"date": "2024-05-01", "name": "Tag der Arbeit"}]`,
	"standard_weeks":            `[{"id": "1", "schedule_data": {"0": {"s1": "e1"}, "Friday": {"s1": 2}}}]`,
	"info_entries":              `[{"id": "i1", "year": 2024, "month": 5, "text": "Inventur", "employee_id": "e1"}]`,
	"employee_hourly_rates":     `[{"employee_id": "e1", "rate": 13.5, "valid_from": "2024-01-01"}]`,
	"employee_monthly_payments": `[{"employee_id": "e1", "amount": 538, "valid_from": "2024-01-01"}]`,
}

func TestSyncIntegration(t *testing.T) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		t.Skip("CONFIG_PATH is not set")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Executor.Mode != config.ExecutorModePostgres {
		t.Skip("integration test needs executor.mode: postgres")
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	prepareDatabase(t, ctx, pool, cfg.Database.DSN())

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := remoteTables[strings.TrimPrefix(r.URL.Path, "/rest/v1/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(remote.Close)

	svc := newService(t, cfg, pool, remote.URL)

	first, err := svc.Run(ctx, syncer.Options{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(first.Plan.NewMappings) == 0 {
		t.Fatalf("expected new mappings on first run")
	}

	var first0, last0 string
	if err := pool.QueryRow(ctx, `SELECT first_name, last_name FROM staff WHERE city = 'Berlin'`).Scan(&first0, &last0); err != nil {
		t.Fatalf("failed to read staff: %v", err)
	}
	if first0 != "Sean" || last0 != "O'Brien" {
		t.Fatalf("unexpected staff name %q %q", first0, last0)
	}

	var weekData string
	if err := pool.QueryRow(ctx, `SELECT schedule_data::text FROM mj_standard_weeks WHERE pharmacy_id = $1 AND week_number = 1`, pharmacyID).Scan(&weekData); err != nil {
		t.Fatalf("failed to read standard week: %v", err)
	}
	var days map[string][]map[string]string
	if err := json.Unmarshal([]byte(weekData), &days); err != nil {
		t.Fatalf("invalid week data %s: %v", weekData, err)
	}
	if len(days["Montag"]) != 1 || len(days["Freitag"]) != 1 {
		t.Fatalf("unexpected week data: %s", weekData)
	}

	var schedules int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM mj_schedules WHERE pharmacy_id = $1`, pharmacyID).Scan(&schedules); err != nil {
		t.Fatalf("failed to count schedules: %v", err)
	}
	if schedules != 1 {
		t.Fatalf("expected dangling schedule to be skipped, got %d rows", schedules)
	}

	second, err := svc.Run(ctx, syncer.Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(second.Plan.NewMappings) != 0 {
		t.Fatalf("expected stable ids on second run, got %d new mappings", len(second.Plan.NewMappings))
	}

	var fixedStaff int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM staff WHERE id = $1 AND first_name = 'Owner'`, fixedLocalID).Scan(&fixedStaff); err != nil {
		t.Fatalf("failed to read fixed staff: %v", err)
	}
	if fixedStaff != 1 {
		t.Fatalf("fixed staff record must not be overwritten")
	}

	if _, err := svc.Run(ctx, syncer.Options{Reset: true}); err != nil {
		t.Fatalf("reset run failed: %v", err)
	}
	var mapped int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM mj_cloud_id_map WHERE table_name = 'employees' AND cloud_id = $1 AND local_id = $2`, fixedRemote, fixedLocalID).Scan(&mapped); err != nil {
		t.Fatalf("failed to read fixed mapping: %v", err)
	}
	if mapped != 1 {
		t.Fatalf("fixed mapping must survive a reset")
	}
}

func prepareDatabase(t *testing.T, ctx context.Context, pool *pgxpool.Pool, dsn string) {
	t.Helper()

	if err := migrations.Run("down", "", dsn, nil); err != nil {
		t.Fatalf("failed to reset sync infrastructure: %v", err)
	}

	schema, err := os.ReadFile(filepath.Join("fixtures", "target_schema.sql"))
	if err != nil {
		t.Fatalf("failed to read fixture schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("failed to create target schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE mj_work_records, mj_schedules, mj_shifts, mj_holidays, mj_standard_weeks,
		mj_hourly_rates, mj_monthly_payments, mj_info_entries, mj_monthly_reports, mj_manual_hours, mj_profiles, staff`); err != nil {
		t.Fatalf("failed to clean target tables: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO staff (id, pharmacy_id, first_name, last_name, role) VALUES ($1, $2, 'Owner', 'Local', 'Admin')`, fixedLocalID, pharmacyID); err != nil {
		t.Fatalf("failed to seed fixed staff: %v", err)
	}
}

func newService(t *testing.T, cfg *config.Config, pool *pgxpool.Pool, remoteURL string) *syncer.Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	setup, err := migrations.SetupSQL()
	if err != nil {
		t.Fatalf("SetupSQL returned error: %v", err)
	}

	tenant := plan.Tenant{
		PharmacyID: uuid.MustParse(pharmacyID),
		SyncRole:   "Minijobber",
		Fixed:      &plan.FixedEmployee{RemoteID: fixedRemote, LocalID: uuid.MustParse(fixedLocalID)},
	}
	defaults := plan.Defaults{
		EmployeeName:   "Unbekannt",
		JobType:        "Autobote",
		HourlyRate:     decimal.RequireFromString("12.41"),
		MonthlyPayment: decimal.RequireFromString("538"),
		HoursBalance:   decimal.Zero,
	}

	dsn := cfg.Database.DSN()
	dest := executor.NewPostgres(executor.PostgresConfig{
		DB:           pool,
		Transactions: pg.NewTransactionManager(pool),
		Store:        repo.NewIdentityRepository(pool),
		Migrate: func(context.Context) error {
			return migrations.Run("up", "", dsn, logger)
		},
		Target: "integration",
		Logger: logger,
	})

	return syncer.NewService(syncer.Config{
		Loader:     snapshot.NewLoader(postgrest.NewClient(remoteURL, "test-key", 0, 5*time.Second), nil, logger),
		Store:      dest,
		Planner:    plan.NewPlanner(tenant, defaults, setup, nil),
		Applier:    dest,
		Writer:     executor.FileWriter{},
		ScriptPath: filepath.Join(t.TempDir(), "minijobber_sync.sql"),
		Logger:     logger,
	})
}
