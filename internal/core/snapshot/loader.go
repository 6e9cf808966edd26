package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Fetcher はリモートテーブルの全行を取得します。
type Fetcher interface {
	FetchAll(ctx context.Context, table string) ([]json.RawMessage, error)
}

// Report は取得結果の集計です。
type Report struct {
	Counts  map[Collection]int
	Failed  map[Collection]error
	Invalid map[Collection]int
}

// Loader は全コレクションを取得してスナップショットを組み立てます。
type Loader struct {
	fetcher Fetcher
	tables  map[Collection]string
	logger  *slog.Logger
}

// NewLoader は Loader を生成します。tables が nil の場合は既定のテーブル名を使います。
func NewLoader(fetcher Fetcher, tables map[Collection]string, logger *slog.Logger) *Loader {
	if tables == nil {
		tables, _ = RemoteTables(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, tables: tables, logger: logger}
}

// Load は全コレクションを取得します。
// 取得に失敗したコレクションは空として扱い、他のコレクションの取得は継続します。
func (l *Loader) Load(ctx context.Context) (*Snapshot, Report) {
	snap := &Snapshot{}
	report := Report{
		Counts:  make(map[Collection]int, len(Collections)),
		Failed:  make(map[Collection]error),
		Invalid: make(map[Collection]int),
	}

	for _, c := range Collections {
		table := l.tables[c]
		rows, err := l.fetcher.FetchAll(ctx, table)
		if err != nil {
			l.logger.Warn("fetch failed, continuing with empty collection", "collection", c, "table", table, "err", err)
			report.Failed[c] = err
			report.Counts[c] = 0
			continue
		}

		valid, invalid := l.decode(snap, c, rows)
		report.Counts[c] = valid
		if invalid > 0 {
			report.Invalid[c] = invalid
			l.logger.Warn("undecodable rows dropped", "collection", c, "count", invalid)
		}
		l.logger.Info("fetched collection", "collection", c, "rows", valid)
	}

	return snap, report
}

func (l *Loader) decode(snap *Snapshot, c Collection, rows []json.RawMessage) (int, int) {
	var invalid int
	switch c {
	case CollectionEmployees:
		snap.Employees, invalid = decodeRows[Employee](rows)
		return len(snap.Employees), invalid
	case CollectionShifts:
		snap.Shifts, invalid = decodeRows[Shift](rows)
		return len(snap.Shifts), invalid
	case CollectionSchedules:
		snap.Schedules, invalid = decodeRows[Schedule](rows)
		return len(snap.Schedules), invalid
	case CollectionWorkRecords:
		snap.WorkRecords, invalid = decodeRows[WorkRecord](rows)
		return len(snap.WorkRecords), invalid
	case CollectionHolidays:
		snap.Holidays, invalid = decodeRows[Holiday](rows)
		return len(snap.Holidays), invalid
	case CollectionStandardWeeks:
		snap.StandardWeeks, invalid = decodeRows[StandardWeek](rows)
		return len(snap.StandardWeeks), invalid
	case CollectionInfoEntries:
		snap.InfoEntries, invalid = decodeRows[InfoEntry](rows)
		return len(snap.InfoEntries), invalid
	case CollectionHourlyRates:
		snap.HourlyRates, invalid = decodeRows[HourlyRate](rows)
		return len(snap.HourlyRates), invalid
	case CollectionMonthlyPayments:
		snap.MonthlyPayments, invalid = decodeRows[MonthlyPayment](rows)
		return len(snap.MonthlyPayments), invalid
	}
	return 0, len(rows)
}

func decodeRows[T any](rows []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(rows))
	invalid := 0
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			invalid++
			continue
		}
		out = append(out, v)
	}
	return out, invalid
}
