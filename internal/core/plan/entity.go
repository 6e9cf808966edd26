package plan

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/refcheck"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

// FixedEmployee は既存のローカルスタッフに固定で紐づけるリモート社員です。
type FixedEmployee struct {
	RemoteID string
	LocalID  uuid.UUID
}

// Tenant は同期先テナントの情報です。
type Tenant struct {
	PharmacyID uuid.UUID
	SyncRole   string
	// Fixed が nil の場合、固定マッピングは行いません。
	Fixed *FixedEmployee
	// PreservedStaffIDs はリセット時に削除しないスタッフです。固定社員は常に保護されます。
	PreservedStaffIDs []uuid.UUID
}

// Defaults はリモートで欠損している社員属性の既定値です。
type Defaults struct {
	EmployeeName   string
	JobType        string
	HourlyRate     decimal.Decimal
	MonthlyPayment decimal.Decimal
	HoursBalance   decimal.Decimal
}

// Options は 1 回の計画に対する指定です。
type Options struct {
	Reset bool
}

// Plan は生成されたスクリプトと集計結果です。
type Plan struct {
	Script      *sqlgen.Script
	NewMappings []identity.Mapping
	Skips       []refcheck.Skip
	// Records はセクションごとの出力レコード数です。
	Records map[string]int
}
