package plan

import (
	"fmt"
	"time"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/refcheck"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// セクション見出しです。Records のキーにもなります。
const (
	SectionReset           = "RESET"
	SectionFixedMapping    = "FIXED MAPPING"
	SectionMappings        = "ID MAPPINGS"
	SectionEmployees       = "EMPLOYEES"
	SectionShifts          = "SHIFTS"
	SectionSchedules       = "SCHEDULES"
	SectionWorkRecords     = "WORK RECORDS"
	SectionHolidays        = "HOLIDAYS"
	SectionStandardWeeks   = "STANDARD WEEKS"
	SectionHourlyRates     = "HOURLY RATES"
	SectionMonthlyPayments = "MONTHLY PAYMENTS"
	SectionInfoEntries     = "INFO ENTRIES"
	SectionSyncState       = "SYNC STATE"
)

// Planner はスナップショットから同期スクリプトを組み立てます。
type Planner struct {
	tenant   Tenant
	defaults Defaults
	setup    string
	clock    Clock
}

// NewPlanner は Planner を生成します。setupSQL はトランザクション前に実行される基盤 SQL です。
func NewPlanner(tenant Tenant, defaults Defaults, setupSQL string, clock Clock) *Planner {
	if clock == nil {
		clock = realClock{}
	}
	return &Planner{tenant: tenant, defaults: defaults, setup: setupSQL, clock: clock}
}

// Build は 2 段階でスクリプトを生成します。
// まず全レコードの参照を検査して ID を割り当て、その後で文を描画します。
// mapper には既存マッピングを読み込んだものを渡します。リセット時は空の mapper を渡してください。
func (p *Planner) Build(snap *snapshot.Snapshot, mapper *identity.Mapper, opts Options) (*Plan, error) {
	if snap == nil {
		return nil, ErrSnapshotRequired
	}
	if mapper == nil {
		return nil, ErrMapperRequired
	}

	check := refcheck.New()
	alloc := &allocator{tenant: p.tenant, mapper: mapper, check: check}
	res, err := alloc.run(snap)
	if err != nil {
		return nil, err
	}

	script := &sqlgen.Script{Header: p.header(opts), Setup: p.setup}
	records := make(map[string]int)
	add := func(title string, stmts []sqlgen.Statement, err error) error {
		if err != nil {
			return fmt.Errorf("plan: %s: %w", title, err)
		}
		if len(stmts) == 0 {
			return nil
		}
		script.Add(title, stmts...)
		records[title] = len(stmts)
		return nil
	}

	if opts.Reset {
		if err := add(SectionReset, resetStatements(p.tenant), nil); err != nil {
			return nil, err
		}
	}

	if res.seed != nil {
		if err := add(SectionFixedMapping, []sqlgen.Statement{seedStatement(res.seed)}, nil); err != nil {
			return nil, err
		}
	}

	// 固定マッピングは get_or_create_local_id が書き込むため除外します。
	var newMappings []identity.Mapping
	var mappingStmts []sqlgen.Statement
	for _, m := range mapper.Pending() {
		if res.seed != nil && m.EntityType == identity.EntityEmployees && m.RemoteID == res.seed.RemoteID {
			continue
		}
		newMappings = append(newMappings, m)
		mappingStmts = append(mappingStmts, mappingStatement(m))
	}
	if err := add(SectionMappings, mappingStmts, nil); err != nil {
		return nil, err
	}

	r := &renderer{tenant: p.tenant, defaults: p.defaults}
	sections := []struct {
		title  string
		render func()
	}{
		{SectionEmployees, func() { r.employees(res.employees) }},
		{SectionShifts, func() { r.shifts(res.shifts) }},
		{SectionSchedules, func() { r.schedules(res.schedules) }},
		{SectionWorkRecords, func() { r.workRecords(res.workRecords) }},
		{SectionHolidays, func() { r.holidays(res.holidays) }},
		{SectionStandardWeeks, func() { r.weeks(res.weeks) }},
		{SectionHourlyRates, func() { r.hourlyRates(res.rates) }},
		{SectionMonthlyPayments, func() { r.monthlyPayments(res.payments) }},
		{SectionInfoEntries, func() { r.infoEntries(res.infoEntries) }},
	}
	for _, sec := range sections {
		sec.render()
		stmts, renderErr := r.flush()
		if err := add(sec.title, stmts, renderErr); err != nil {
			return nil, err
		}
	}

	if err := add(SectionSyncState, []sqlgen.Statement{syncStateStatement()}, nil); err != nil {
		return nil, err
	}

	return &Plan{
		Script:      script,
		NewMappings: newMappings,
		Skips:       check.Report(),
		Records:     records,
	}, nil
}

func (p *Planner) header(opts Options) []string {
	mode := "incremental"
	if opts.Reset {
		mode = "reset (all synced data is deleted first)"
	}
	return []string{
		"Minijobber cloud -> local sync",
		"generated: " + p.clock.Now().Format(time.RFC3339),
		"pharmacy: " + p.tenant.PharmacyID.String(),
		"mode: " + mode,
	}
}
