package plan

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

// renderer は 2 回目のパスです。解決済みのレコードから文を組み立てるだけで、ID の割り当ては行いません。
type renderer struct {
	tenant   Tenant
	defaults Defaults
	stmts    []sqlgen.Statement
	err      error
}

func (r *renderer) upsert(u sqlgen.Upsert) {
	if r.err != nil {
		return
	}
	st, err := u.Statement()
	if err != nil {
		r.err = err
		return
	}
	r.stmts = append(r.stmts, st)
}

// flush は蓄積した文を返して内部状態を空にします。
func (r *renderer) flush() ([]sqlgen.Statement, error) {
	out, err := r.stmts, r.err
	r.stmts, r.err = nil, nil
	return out, err
}

func (r *renderer) pharmacy() string {
	return r.tenant.PharmacyID.String()
}

func seedStatement(fixed *FixedEmployee) sqlgen.Statement {
	return sqlgen.Statement{
		SQL:  "SELECT get_or_create_local_id($1, $2, $3)",
		Args: []any{fixed.RemoteID, string(identity.EntityEmployees), fixed.LocalID.String()},
	}
}

func mappingStatement(m identity.Mapping) sqlgen.Statement {
	return sqlgen.Statement{
		SQL:  "INSERT INTO mj_cloud_id_map (cloud_id, table_name, local_id) VALUES ($1, $2, $3)",
		Args: []any{m.RemoteID, string(m.EntityType), m.LocalID.String()},
	}
}

func (r *renderer) employees(rows []employeeRow) {
	for _, row := range rows {
		e := row.src
		name := strings.TrimSpace(deref(e.Name))
		if name == "" {
			name = r.defaults.EmployeeName
		}
		first, last := SplitName(name)
		street, postal, city := ParseAddress(deref(e.Address))
		mobile := deref(e.Mobile)
		if mobile == "" {
			mobile = deref(e.Phone)
		}
		staffID := row.local.String()

		// 固定社員のスタッフレコードはローカル側が正です。
		if !row.fixed {
			r.upsert(sqlgen.Upsert{
				Table:           "staff",
				Columns:         []string{"id", "pharmacy_id", "first_name", "last_name", "email", "mobile", "street", "postal_code", "city", "role"},
				Values:          []any{staffID, r.pharmacy(), first, last, nullIfEmpty(deref(e.Email)), nullIfEmpty(mobile), nullIfEmpty(street), nullIfEmpty(postal), nullIfEmpty(city), r.tenant.SyncRole},
				ConflictColumns: []string{"id"},
				UpdateColumns:   []string{"first_name", "last_name", "email", "mobile", "street", "postal_code", "city"},
			})
		}

		jobType := deref(e.JobType)
		if jobType == "" {
			jobType = r.defaults.JobType
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		r.upsert(sqlgen.Upsert{
			Table:   "mj_profiles",
			Columns: []string{"pharmacy_id", "staff_id", "hourly_rate", "monthly_payment", "hours_balance", "job_type", "initials", "active"},
			Values: []any{
				r.pharmacy(), staffID,
				decimalOr(e.HourlyRate, r.defaults.HourlyRate),
				decimalOr(e.MonthlyPayment, r.defaults.MonthlyPayment),
				decimalOr(e.HoursBalance, r.defaults.HoursBalance),
				jobType, e.Initials, active,
			},
			ConflictColumns: []string{"staff_id"},
			UpdateColumns:   []string{"hourly_rate", "monthly_payment", "hours_balance", "job_type", "initials", "active"},
		})
	}
}

func (r *renderer) shifts(rows []shiftRow) {
	for _, row := range rows {
		s := row.src
		r.upsert(sqlgen.Upsert{
			Table:           "mj_shifts",
			Columns:         []string{"id", "pharmacy_id", "name", "start_time", "end_time", "hours"},
			Values:          []any{row.local.String(), r.pharmacy(), s.Name, s.StartTime, s.EndTime, s.Hours},
			ConflictColumns: []string{"id"},
			UpdateColumns:   []string{"name", "start_time", "end_time", "hours"},
		})
	}
}

func (r *renderer) schedules(rows []scheduleRow) {
	for _, row := range rows {
		s := row.src
		absent := false
		if s.Absent != nil {
			absent = *s.Absent
		}
		r.upsert(sqlgen.Upsert{
			Table:           "mj_schedules",
			Columns:         []string{"id", "pharmacy_id", "staff_id", "shift_id", "date", "absent", "absent_reason"},
			Values:          []any{row.local.String(), r.pharmacy(), row.employee.String(), row.shift.String(), s.Date, absent, s.AbsentReason},
			ConflictColumns: []string{"id"},
			UpdateColumns:   []string{"staff_id", "shift_id", "date", "absent", "absent_reason"},
		})
	}
}

func (r *renderer) workRecords(rows []workRecordRow) {
	for _, row := range rows {
		w := row.src
		r.upsert(sqlgen.Upsert{
			Table:           "mj_work_records",
			Columns:         []string{"id", "pharmacy_id", "schedule_id", "actual_start_time", "actual_end_time", "actual_hours"},
			Values:          []any{row.local.String(), r.pharmacy(), row.schedule.String(), w.ActualStartTime, w.ActualEndTime, decimalOr(w.ActualHours, decimal.Zero)},
			ConflictColumns: []string{"id"},
			UpdateColumns:   []string{"schedule_id", "actual_start_time", "actual_end_time", "actual_hours"},
		})
	}
}

func (r *renderer) holidays(rows []snapshot.Holiday) {
	for _, h := range rows {
		r.upsert(sqlgen.Upsert{
			Table:           "mj_holidays",
			Columns:         []string{"pharmacy_id", "date", "name"},
			Values:          []any{r.pharmacy(), h.Date, h.Name},
			ConflictColumns: []string{"pharmacy_id", "date"},
			UpdateColumns:   []string{"name"},
		})
	}
}

func (r *renderer) weeks(rows []weekRow) {
	for _, w := range rows {
		data, err := scheduleData(w.days)
		if err != nil {
			if r.err == nil {
				r.err = err
			}
			return
		}
		r.upsert(sqlgen.Upsert{
			Table:           "mj_standard_weeks",
			Columns:         []string{"pharmacy_id", "week_number", "name", "schedule_data"},
			Values:          []any{r.pharmacy(), w.number, w.name, data},
			Casts:           map[string]string{"schedule_data": "jsonb"},
			ConflictColumns: []string{"pharmacy_id", "week_number"},
			UpdateColumns:   []string{"name", "schedule_data"},
		})
	}
}

func (r *renderer) hourlyRates(rows []rateRow) {
	for _, row := range rows {
		r.upsert(sqlgen.Upsert{
			Table:           "mj_hourly_rates",
			Columns:         []string{"pharmacy_id", "staff_id", "rate", "valid_from"},
			Values:          []any{r.pharmacy(), row.employee.String(), row.value.Rate, row.value.ValidFrom},
			ConflictColumns: []string{"staff_id", "valid_from"},
			UpdateColumns:   []string{"rate"},
		})
	}
}

func (r *renderer) monthlyPayments(rows []paymentRow) {
	for _, row := range rows {
		r.upsert(sqlgen.Upsert{
			Table:           "mj_monthly_payments",
			Columns:         []string{"pharmacy_id", "staff_id", "amount", "valid_from"},
			Values:          []any{r.pharmacy(), row.employee.String(), row.value.Amount, row.value.ValidFrom},
			ConflictColumns: []string{"staff_id", "valid_from"},
			UpdateColumns:   []string{"amount"},
		})
	}
}

func (r *renderer) infoEntries(rows []infoEntryRow) {
	for _, row := range rows {
		var staff any
		if row.employee != nil {
			staff = row.employee.String()
		}
		e := row.src
		r.upsert(sqlgen.Upsert{
			Table:           "mj_info_entries",
			Columns:         []string{"id", "pharmacy_id", "year", "month", "text", "staff_id"},
			Values:          []any{row.local.String(), r.pharmacy(), e.Year, e.Month, e.Text, staff},
			ConflictColumns: []string{"id"},
			UpdateColumns:   []string{"text", "staff_id"},
		})
	}
}

func syncStateStatement() sqlgen.Statement {
	return sqlgen.Raw("INSERT INTO mj_sync_state (id, last_sync_at) VALUES (1, NOW()) ON CONFLICT (id) DO UPDATE SET last_sync_at = NOW(), updated_at = NOW()")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}
