package identity

import "github.com/google/uuid"

// EntityType はマッピングを区別するエンティティ種別です。マッピングテーブルの table_name 列に保存されます。
type EntityType string

const (
	EntityEmployees   EntityType = "employees"
	EntityShifts      EntityType = "shifts"
	EntitySchedules   EntityType = "schedules"
	EntityWorkRecords EntityType = "work_records"
	EntityInfoEntries EntityType = "info_entries"
)

// Mapping はリモート ID とローカル ID の対応です。
type Mapping struct {
	RemoteID   string
	EntityType EntityType
	LocalID    uuid.UUID
}

type key struct {
	remoteID   string
	entityType EntityType
}
