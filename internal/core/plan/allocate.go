package plan

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/refcheck"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
)

// スキップ件数の集計キーです。
const (
	entityEmployees       = "employees"
	entityShifts          = "shifts"
	entitySchedules       = "schedules"
	entityWorkRecords     = "work_records"
	entityHolidays        = "holidays"
	entityStandardWeeks   = "standard_weeks"
	entityWeekAssignments = "standard_weeks.assignments"
	entityInfoEntries     = "info_entries"
	entityHourlyRates     = "hourly_rates"
	entityMonthlyPayments = "monthly_payments"
)

type employeeRow struct {
	local uuid.UUID
	fixed bool
	src   snapshot.Employee
}

type shiftRow struct {
	local uuid.UUID
	src   snapshot.Shift
}

type scheduleRow struct {
	local    uuid.UUID
	employee uuid.UUID
	shift    uuid.UUID
	src      snapshot.Schedule
}

type workRecordRow struct {
	local    uuid.UUID
	schedule uuid.UUID
	src      snapshot.WorkRecord
}

type weekAssignment struct {
	Employee uuid.UUID
	Shift    uuid.UUID
}

type weekDayRow struct {
	name        string
	assignments []weekAssignment
}

type weekRow struct {
	number int
	name   string
	days   []weekDayRow
}

type infoEntryRow struct {
	local    uuid.UUID
	employee *uuid.UUID
	src      snapshot.InfoEntry
}

type rateRow struct {
	employee uuid.UUID
	value    snapshot.HourlyRate
}

type paymentRow struct {
	employee uuid.UUID
	value    snapshot.MonthlyPayment
}

// resolved は参照検査と ID 割り当てを終えたレコード群です。描画は Lookup だけで完結します。
type resolved struct {
	seed        *FixedEmployee
	employees   []employeeRow
	shifts      []shiftRow
	schedules   []scheduleRow
	workRecords []workRecordRow
	holidays    []snapshot.Holiday
	weeks       []weekRow
	infoEntries []infoEntryRow
	rates       []rateRow
	payments    []paymentRow
}

// allocator は 1 回目のパスです。スナップショット全体を走査し、
// 入れ子の週テンプレートを含む全ての ID を描画前に解決します。
type allocator struct {
	tenant Tenant
	mapper *identity.Mapper
	check  *refcheck.Validator
}

func (a *allocator) run(snap *snapshot.Snapshot) (*resolved, error) {
	out := &resolved{}

	if fixed := a.tenant.Fixed; fixed != nil {
		local := fixed.LocalID
		if _, err := a.mapper.Resolve(fixed.RemoteID, identity.EntityEmployees, &local); err != nil {
			return nil, fmt.Errorf("plan: fixed employee: %w", err)
		}
		out.seed = fixed
	}

	employeeIDs := refcheck.NewIDSet()
	for _, e := range snap.Employees {
		id := e.ID.String()
		if id == "" || employeeIDs.Has(id) {
			a.check.Reject(entityEmployees)
			continue
		}
		local, err := a.mapper.Resolve(id, identity.EntityEmployees, nil)
		if err != nil {
			return nil, fmt.Errorf("plan: employee %s: %w", id, err)
		}
		employeeIDs[id] = struct{}{}
		out.employees = append(out.employees, employeeRow{
			local: local,
			fixed: a.tenant.Fixed != nil && a.tenant.Fixed.RemoteID == id,
			src:   e,
		})
	}

	shiftIDs := refcheck.NewIDSet()
	for _, s := range snap.Shifts {
		id := s.ID.String()
		if id == "" || shiftIDs.Has(id) {
			a.check.Reject(entityShifts)
			continue
		}
		local, err := a.mapper.Resolve(id, identity.EntityShifts, nil)
		if err != nil {
			return nil, fmt.Errorf("plan: shift %s: %w", id, err)
		}
		shiftIDs[id] = struct{}{}
		out.shifts = append(out.shifts, shiftRow{local: local, src: s})
	}

	// 参照検査に通ったスケジュールだけを勤務実績の参照先として扱います。
	scheduleIDs := refcheck.NewIDSet()
	for _, s := range snap.Schedules {
		id := s.ID.String()
		if id == "" || scheduleIDs.Has(id) {
			a.check.Reject(entitySchedules)
			continue
		}
		ok := a.check.Check(entitySchedules,
			refcheck.Ref{Field: "employee_id", ID: s.EmployeeID.String(), Known: employeeIDs},
			refcheck.Ref{Field: "shift_id", ID: s.ShiftID.String(), Known: shiftIDs},
		)
		if !ok {
			continue
		}
		local, err := a.mapper.Resolve(id, identity.EntitySchedules, nil)
		if err != nil {
			return nil, fmt.Errorf("plan: schedule %s: %w", id, err)
		}
		scheduleIDs[id] = struct{}{}
		out.schedules = append(out.schedules, scheduleRow{
			local:    local,
			employee: a.lookup(s.EmployeeID.String(), identity.EntityEmployees),
			shift:    a.lookup(s.ShiftID.String(), identity.EntityShifts),
			src:      s,
		})
	}

	recordIDs := refcheck.NewIDSet()
	for _, w := range snap.WorkRecords {
		id := w.ID.String()
		if id == "" || recordIDs.Has(id) {
			a.check.Reject(entityWorkRecords)
			continue
		}
		if !a.check.Check(entityWorkRecords, refcheck.Ref{Field: "schedule_id", ID: w.ScheduleID.String(), Known: scheduleIDs}) {
			continue
		}
		local, err := a.mapper.Resolve(id, identity.EntityWorkRecords, nil)
		if err != nil {
			return nil, fmt.Errorf("plan: work record %s: %w", id, err)
		}
		recordIDs[id] = struct{}{}
		out.workRecords = append(out.workRecords, workRecordRow{
			local:    local,
			schedule: a.lookup(w.ScheduleID.String(), identity.EntitySchedules),
			src:      w,
		})
	}

	for _, h := range snap.Holidays {
		if h.Date == "" {
			a.check.Reject(entityHolidays)
			continue
		}
		out.holidays = append(out.holidays, h)
	}

	for _, w := range snap.StandardWeeks {
		number, err := w.WeekNumber()
		if err != nil {
			a.check.Reject(entityStandardWeeks)
			continue
		}
		out.weeks = append(out.weeks, a.week(number, w, employeeIDs, shiftIDs))
	}

	infoIDs := refcheck.NewIDSet()
	for _, e := range snap.InfoEntries {
		id := e.ID.String()
		if id == "" || infoIDs.Has(id) {
			a.check.Reject(entityInfoEntries)
			continue
		}
		local, err := a.mapper.Resolve(id, identity.EntityInfoEntries, nil)
		if err != nil {
			return nil, fmt.Errorf("plan: info entry %s: %w", id, err)
		}
		infoIDs[id] = struct{}{}
		row := infoEntryRow{local: local, src: e}
		if emp := a.check.Optional(entityInfoEntries, refcheck.Ref{Field: "employee_id", ID: e.EmployeeID.String(), Known: employeeIDs}); emp != "" {
			staff := a.lookup(emp, identity.EntityEmployees)
			row.employee = &staff
		}
		out.infoEntries = append(out.infoEntries, row)
	}

	for _, r := range snap.HourlyRates {
		if r.ValidFrom == "" {
			a.check.Reject(entityHourlyRates)
			continue
		}
		if !a.check.Check(entityHourlyRates, refcheck.Ref{Field: "employee_id", ID: r.EmployeeID.String(), Known: employeeIDs}) {
			continue
		}
		out.rates = append(out.rates, rateRow{employee: a.lookup(r.EmployeeID.String(), identity.EntityEmployees), value: r})
	}

	for _, p := range snap.MonthlyPayments {
		if p.ValidFrom == "" {
			a.check.Reject(entityMonthlyPayments)
			continue
		}
		if !a.check.Check(entityMonthlyPayments, refcheck.Ref{Field: "employee_id", ID: p.EmployeeID.String(), Known: employeeIDs}) {
			continue
		}
		out.payments = append(out.payments, paymentRow{employee: a.lookup(p.EmployeeID.String(), identity.EntityEmployees), value: p})
	}

	return out, nil
}

// week は週テンプレートの曜日ごとの割り当てを解決します。
// シフトまたは社員が見つからない組は個別に除外されます。
func (a *allocator) week(number int, w snapshot.StandardWeek, employees, shifts refcheck.IDSet) weekRow {
	row := weekRow{number: number, name: fmt.Sprintf("Woche %d", number)}
	if w.Name != nil && *w.Name != "" {
		row.name = *w.Name
	}
	for _, day := range w.ScheduleData {
		d := weekDayRow{name: DayName(day.Key)}
		for _, as := range day.Assignments {
			ok := a.check.Check(entityWeekAssignments,
				refcheck.Ref{Field: "shift_id", ID: as.ShiftID.String(), Known: shifts},
				refcheck.Ref{Field: "employee_id", ID: as.EmployeeID.String(), Known: employees},
			)
			if !ok {
				continue
			}
			d.assignments = append(d.assignments, weekAssignment{
				Employee: a.lookup(as.EmployeeID.String(), identity.EntityEmployees),
				Shift:    a.lookup(as.ShiftID.String(), identity.EntityShifts),
			})
		}
		row.days = append(row.days, d)
	}
	return row
}

// lookup は検査済みの参照を引きます。検査済みの ID は必ず割り当て済みです。
func (a *allocator) lookup(remoteID string, entityType identity.EntityType) uuid.UUID {
	local, _ := a.mapper.Lookup(remoteID, entityType)
	return local
}
