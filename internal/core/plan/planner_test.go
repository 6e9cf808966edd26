package plan

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/refcheck"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

var (
	testPharmacy = uuid.MustParse("e27c71c2-c33f-4207-8028-9071f70d4f67")
	testFixed    = uuid.MustParse("011695e8-9bd8-4ba5-9ba3-15ca37c319aa")
)

func counterGenerator() identity.Generator {
	n := 0
	return func() uuid.UUID {
		n++
		return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	}
}

func strPtr(s string) *string { return &s }

func testTenant() Tenant {
	return Tenant{
		PharmacyID: testPharmacy,
		SyncRole:   "Minijobber",
		Fixed:      &FixedEmployee{RemoteID: "cloud-fixed", LocalID: testFixed},
	}
}

func testDefaults() Defaults {
	return Defaults{
		EmployeeName:   "Unbekannt",
		JobType:        "Autobote",
		HourlyRate:     decimal.RequireFromString("12.41"),
		MonthlyPayment: decimal.RequireFromString("538"),
		HoursBalance:   decimal.Zero,
	}
}

func testSnapshot() *snapshot.Snapshot {
	weekName := "Sommer"
	return &snapshot.Snapshot{
		Employees: []snapshot.Employee{
			{ID: "e1", Name: strPtr("Sean O'Brien"), Address: strPtr("Hauptstr. 1, 12345 Berlin"), Phone: strPtr("0301234")},
			{ID: "cloud-fixed", Name: strPtr("Matthias Inhaber")},
		},
		Shifts: []snapshot.Shift{
			{ID: "s1", Name: "Früh", StartTime: strPtr("08:00"), EndTime: strPtr("12:00"), Hours: decimal.RequireFromString("4")},
		},
		Schedules: []snapshot.Schedule{
			{ID: "sc1", EmployeeID: "e1", ShiftID: "s1", Date: "2024-05-02"},
			{ID: "sc2", EmployeeID: "e9", ShiftID: "s1", Date: "2024-05-03"},
		},
		WorkRecords: []snapshot.WorkRecord{
			{ID: "w1", ScheduleID: "sc1"},
			{ID: "w2", ScheduleID: "sc2"},
		},
		Holidays: []snapshot.Holiday{{Date: "2024-05-01", Name: "Tag der Arbeit"}},
		StandardWeeks: []snapshot.StandardWeek{
			{ID: "1", Name: &weekName, ScheduleData: snapshot.WeekData{
				{Key: "0", Assignments: []snapshot.Assignment{{ShiftID: "s1", EmployeeID: "e1"}, {ShiftID: "s9", EmployeeID: "e1"}}},
			}},
			{ID: "abc"},
		},
		InfoEntries: []snapshot.InfoEntry{{ID: "i1", Year: 2024, Month: 5, Text: "Inventur", EmployeeID: "e9"}},
		HourlyRates: []snapshot.HourlyRate{
			{EmployeeID: "e1", Rate: decimal.RequireFromString("13"), ValidFrom: "2024-01-01"},
			{EmployeeID: "e9", Rate: decimal.RequireFromString("13"), ValidFrom: "2024-01-01"},
		},
		MonthlyPayments: []snapshot.MonthlyPayment{{EmployeeID: "e1", Amount: decimal.RequireFromString("538"), ValidFrom: "2024-01-01"}},
	}
}

func newTestPlanner() *Planner {
	return NewPlanner(testTenant(), testDefaults(), "CREATE TABLE IF NOT EXISTS mj_cloud_id_map ();", stubClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)})
}

func build(t *testing.T, existing []identity.Mapping, opts Options) (*Plan, *identity.Mapper, string) {
	t.Helper()

	mapper, err := identity.NewMapper(existing, counterGenerator())
	if err != nil {
		t.Fatalf("NewMapper returned error: %v", err)
	}
	p, err := newTestPlanner().Build(testSnapshot(), mapper, opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	text, err := p.Script.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	return p, mapper, text
}

func section(t *testing.T, s *sqlgen.Script, title string) sqlgen.Section {
	t.Helper()
	for _, sec := range s.Sections {
		if sec.Title == title {
			return sec
		}
	}
	t.Fatalf("section %s not found", title)
	return sqlgen.Section{}
}

func local(t *testing.T, m *identity.Mapper, remoteID string, entityType identity.EntityType) string {
	t.Helper()
	id, ok := m.Lookup(remoteID, entityType)
	if !ok {
		t.Fatalf("no mapping for %s %s", entityType, remoteID)
	}
	return id.String()
}

func TestPlanner_Build(t *testing.T) {
	t.Parallel()

	p, mapper, text := build(t, nil, Options{})

	if !strings.Contains(text, "'Sean'") || !strings.Contains(text, "'O''Brien'") {
		t.Fatalf("expected escaped name in script:\n%s", text)
	}
	if !strings.Contains(text, "'12345'") || !strings.Contains(text, "'Berlin'") || !strings.Contains(text, "'0301234'") {
		t.Fatalf("expected parsed address and phone fallback in script")
	}
	if !strings.Contains(text, "generated: 2024-05-01T08:00:00Z") {
		t.Fatalf("expected header timestamp")
	}

	want := fmt.Sprintf(`'{"Montag":[{"staff_id":"%s","shift_id":"%s"}]}'::jsonb`,
		local(t, mapper, "e1", identity.EntityEmployees), local(t, mapper, "s1", identity.EntityShifts))
	if !strings.Contains(text, want) {
		t.Fatalf("expected week data %s in script:\n%s", want, text)
	}
	if !strings.Contains(text, "'Sommer'") {
		t.Fatalf("expected week name in script")
	}

	for _, sec := range []string{SectionSchedules, SectionWorkRecords, SectionHourlyRates, SectionStandardWeeks, SectionInfoEntries} {
		if got := p.Records[sec]; got != 1 {
			t.Fatalf("expected 1 record in %s, got %d", sec, got)
		}
	}
	if p.Records[SectionEmployees] != 3 {
		t.Fatalf("expected 1 staff + 2 profiles, got %d", p.Records[SectionEmployees])
	}

	wantSkips := []refcheck.Skip{
		{Entity: "hourly_rates", Dropped: 1},
		{Entity: "info_entries", Cleared: 1},
		{Entity: "schedules", Dropped: 1},
		{Entity: "standard_weeks", Dropped: 1},
		{Entity: "standard_weeks.assignments", Dropped: 1},
		{Entity: "work_records", Dropped: 1},
	}
	if fmt.Sprint(p.Skips) != fmt.Sprint(wantSkips) {
		t.Fatalf("unexpected skips: %+v", p.Skips)
	}

	if strings.Contains(text, "'sc2'") || strings.Contains(text, "'w2'") {
		t.Fatalf("dropped records must not be mapped")
	}
	if _, ok := mapper.Lookup("sc2", identity.EntitySchedules); ok {
		t.Fatalf("dropped schedule must not get a local id")
	}
}

func TestPlanner_FixedEmployee(t *testing.T) {
	t.Parallel()

	p, _, text := build(t, nil, Options{})

	seed := section(t, p.Script, SectionFixedMapping)
	if len(seed.Statements) != 1 || !strings.Contains(seed.Statements[0].SQL, "get_or_create_local_id") {
		t.Fatalf("unexpected seed section: %+v", seed)
	}
	for _, m := range p.NewMappings {
		if m.RemoteID == "cloud-fixed" {
			t.Fatalf("fixed mapping must be written by the seed only")
		}
	}
	if strings.Contains(text, "INSERT INTO staff (id, pharmacy_id, first_name, last_name, email, mobile, street, postal_code, city, role) VALUES ('"+testFixed.String()) {
		t.Fatalf("fixed staff record must not be upserted")
	}
	if !strings.Contains(text, "VALUES ('"+testPharmacy.String()+"', '"+testFixed.String()+"', 12.41, 538, 0, 'Autobote', NULL, TRUE)") {
		t.Fatalf("expected default profile for fixed employee:\n%s", text)
	}

	seedIdx := strings.Index(text, "get_or_create_local_id('cloud-fixed'")
	mapIdx := strings.Index(text, "INSERT INTO mj_cloud_id_map")
	staffIdx := strings.Index(text, "INSERT INTO staff")
	if seedIdx < 0 || mapIdx < seedIdx || staffIdx < mapIdx {
		t.Fatalf("expected seed, mappings, then entities (%d, %d, %d)", seedIdx, mapIdx, staffIdx)
	}
}

func TestPlanner_StableAcrossRuns(t *testing.T) {
	t.Parallel()

	first, mapper, _ := build(t, nil, Options{})
	if len(first.NewMappings) == 0 {
		t.Fatalf("expected new mappings on first run")
	}

	second, _, _ := build(t, mapper.All(), Options{})
	if len(second.NewMappings) != 0 {
		t.Fatalf("expected no new mappings on second run, got %+v", second.NewMappings)
	}
	for _, sec := range second.Script.Sections {
		if sec.Title == SectionMappings {
			t.Fatalf("mapping section must be omitted when nothing is new")
		}
	}

	a := section(t, first.Script, SectionSchedules).Statements
	b := section(t, second.Script, SectionSchedules).Statements
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Fatalf("schedule statements changed between runs:\n%v\n%v", a, b)
	}
}

func TestPlanner_Reset(t *testing.T) {
	t.Parallel()

	p, _, text := build(t, nil, Options{Reset: true})

	if p.Script.Sections[0].Title != SectionReset {
		t.Fatalf("expected reset section first, got %s", p.Script.Sections[0].Title)
	}
	for _, table := range append(append([]string{}, tenantTables...), "staff", "mj_cloud_id_map", "mj_sync_state") {
		if !strings.Contains(text, "DELETE FROM "+table) {
			t.Fatalf("reset must clear %s", table)
		}
	}
	if !strings.Contains(text, "AND id NOT IN ('"+testFixed.String()+"')") {
		t.Fatalf("reset must preserve the fixed staff record:\n%s", text)
	}
	if strings.Index(text, "DELETE FROM mj_cloud_id_map") > strings.Index(text, "get_or_create_local_id(") {
		t.Fatalf("mappings must be cleared before the seed")
	}
	if !strings.Contains(text, "mode: reset") {
		t.Fatalf("expected reset mode in header")
	}
}

func TestPlanner_FixedConflict(t *testing.T) {
	t.Parallel()

	existing := []identity.Mapping{{RemoteID: "cloud-fixed", EntityType: identity.EntityEmployees, LocalID: uuid.New()}}
	mapper, err := identity.NewMapper(existing, nil)
	if err != nil {
		t.Fatalf("NewMapper returned error: %v", err)
	}
	if _, err := newTestPlanner().Build(testSnapshot(), mapper, Options{}); !errors.Is(err, identity.ErrFixedConflict) {
		t.Fatalf("expected ErrFixedConflict, got %v", err)
	}
}

func TestPlanner_RequiresInputs(t *testing.T) {
	t.Parallel()

	mapper, _ := identity.NewMapper(nil, nil)
	if _, err := newTestPlanner().Build(nil, mapper, Options{}); !errors.Is(err, ErrSnapshotRequired) {
		t.Fatalf("expected ErrSnapshotRequired, got %v", err)
	}
	if _, err := newTestPlanner().Build(&snapshot.Snapshot{}, nil, Options{}); !errors.Is(err, ErrMapperRequired) {
		t.Fatalf("expected ErrMapperRequired, got %v", err)
	}
}

func TestPlanner_EmptySnapshot(t *testing.T) {
	t.Parallel()

	tenant := testTenant()
	tenant.Fixed = nil
	mapper, _ := identity.NewMapper(nil, nil)
	p, err := NewPlanner(tenant, testDefaults(), "", nil).Build(&snapshot.Snapshot{}, mapper, Options{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(p.Script.Sections) != 1 || p.Script.Sections[0].Title != SectionSyncState {
		t.Fatalf("expected only the sync state section, got %+v", p.Script.Sections)
	}
}
