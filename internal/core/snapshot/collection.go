package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// Collection はリモートから取得するエンティティ種別のキーです。
type Collection string

const (
	CollectionEmployees       Collection = "employees"
	CollectionShifts          Collection = "shifts"
	CollectionSchedules       Collection = "schedules"
	CollectionWorkRecords     Collection = "work_records"
	CollectionHolidays        Collection = "holidays"
	CollectionStandardWeeks   Collection = "standard_weeks"
	CollectionInfoEntries     Collection = "info_entries"
	CollectionHourlyRates     Collection = "hourly_rates"
	CollectionMonthlyPayments Collection = "monthly_payments"
)

// Collections は取得順に並んだ全コレクションです。
var Collections = []Collection{
	CollectionEmployees,
	CollectionShifts,
	CollectionSchedules,
	CollectionWorkRecords,
	CollectionHolidays,
	CollectionStandardWeeks,
	CollectionInfoEntries,
	CollectionHourlyRates,
	CollectionMonthlyPayments,
}

var defaultRemoteTables = map[Collection]string{
	CollectionEmployees:       "employees",
	CollectionShifts:          "shifts",
	CollectionSchedules:       "schedules",
	CollectionWorkRecords:     "work_records",
	CollectionHolidays:        "holidays",
	CollectionStandardWeeks:   "standard_weeks",
	CollectionInfoEntries:     "info_entries",
	CollectionHourlyRates:     "employee_hourly_rates",
	CollectionMonthlyPayments: "employee_monthly_payments",
}

// RemoteTables は既定のリモートテーブル名に上書き設定を適用したものを返します。
func RemoteTables(overrides map[string]string) (map[Collection]string, error) {
	tables := make(map[Collection]string, len(defaultRemoteTables))
	for c, name := range defaultRemoteTables {
		tables[c] = name
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		c := Collection(k)
		if _, ok := defaultRemoteTables[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, k)
		}
		name := strings.TrimSpace(overrides[k])
		if name == "" {
			return nil, fmt.Errorf("snapshot: empty remote table for %s", k)
		}
		tables[c] = name
	}
	return tables, nil
}
