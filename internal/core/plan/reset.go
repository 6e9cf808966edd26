package plan

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

// tenantTables は子テーブルから順に並べたテナント単位の削除対象です。
var tenantTables = []string{
	"mj_work_records",
	"mj_monthly_reports",
	"mj_manual_hours",
	"mj_schedules",
	"mj_shifts",
	"mj_hourly_rates",
	"mj_monthly_payments",
	"mj_profiles",
	"mj_holidays",
	"mj_standard_weeks",
	"mj_info_entries",
}

// resetStatements はテナントの同期データとマッピングを全て削除する文を返します。
// 同期ロールのスタッフは削除しますが、固定社員と PreservedStaffIDs は残します。
func resetStatements(tenant Tenant) []sqlgen.Statement {
	pharmacy := tenant.PharmacyID.String()
	out := make([]sqlgen.Statement, 0, len(tenantTables)+3)
	for _, table := range tenantTables {
		out = append(out, sqlgen.Statement{
			SQL:  "DELETE FROM " + table + " WHERE pharmacy_id = $1",
			Args: []any{pharmacy},
		})
	}

	staff := sqlgen.Statement{
		SQL:  "DELETE FROM staff WHERE pharmacy_id = $1 AND role = $2",
		Args: []any{pharmacy, tenant.SyncRole},
	}
	if preserved := preservedStaff(tenant); len(preserved) > 0 {
		placeholders := make([]string, len(preserved))
		for i, id := range preserved {
			staff.Args = append(staff.Args, id.String())
			placeholders[i] = "$" + strconv.Itoa(len(staff.Args))
		}
		staff.SQL += " AND id NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}
	out = append(out, staff)

	out = append(out,
		sqlgen.Raw("DELETE FROM mj_cloud_id_map"),
		sqlgen.Raw("DELETE FROM mj_sync_state"),
	)
	return out
}

func preservedStaff(tenant Tenant) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if tenant.Fixed != nil {
		add(tenant.Fixed.LocalID)
	}
	for _, id := range tenant.PreservedStaffIDs {
		add(id)
	}
	return out
}
