package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RemoteID はリモート側の識別子です。JSON の文字列・数値どちらでも受け付け、文字列として保持します。
type RemoteID string

// UnmarshalJSON は文字列・数値・null を RemoteID に変換します。
func (r *RemoteID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RemoteID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("snapshot: remote id must be string or number: %w", err)
	}
	*r = RemoteID(n.String())
	return nil
}

// String は識別子の文字列表現を返します。
func (r RemoteID) String() string {
	return string(r)
}

// Employee はリモートの社員レコードです。
type Employee struct {
	ID             RemoteID         `json:"id"`
	Name           *string          `json:"name"`
	Address        *string          `json:"address"`
	Email          *string          `json:"email"`
	Mobile         *string          `json:"mobile"`
	Phone          *string          `json:"phone"`
	HourlyRate     *decimal.Decimal `json:"hourly_rate"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment"`
	HoursBalance   *decimal.Decimal `json:"hours_balance"`
	JobType        *string          `json:"job_type"`
	Initials       *string          `json:"initials"`
	Active         *bool            `json:"active"`
}

// Shift はシフト定義です。
type Shift struct {
	ID        RemoteID        `json:"id"`
	Name      string          `json:"name"`
	StartTime *string         `json:"start_time"`
	EndTime   *string         `json:"end_time"`
	Hours     decimal.Decimal `json:"hours"`
}

// Schedule は日付単位の勤務割り当てです。
type Schedule struct {
	ID           RemoteID `json:"id"`
	EmployeeID   RemoteID `json:"employee_id"`
	ShiftID      RemoteID `json:"shift_id"`
	Date         string   `json:"date"`
	Absent       *bool    `json:"absent"`
	AbsentReason *string  `json:"absent_reason"`
}

// WorkRecord は勤務実績です。
type WorkRecord struct {
	ID              RemoteID         `json:"id"`
	ScheduleID      RemoteID         `json:"schedule_id"`
	ActualStartTime *string          `json:"actual_start_time"`
	ActualEndTime   *string          `json:"actual_end_time"`
	ActualHours     *decimal.Decimal `json:"actual_hours"`
}

// Holiday は祝日です。テナントと日付で一意になります。
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// StandardWeek は繰り返し利用される週テンプレートです。
type StandardWeek struct {
	ID           RemoteID `json:"id"`
	Name         *string  `json:"name"`
	ScheduleData WeekData `json:"schedule_data"`
}

// WeekNumber はテンプレート ID を週番号として解釈します。
// 数値 ID は 1.0 のように小数表記で届くことがあるため、整数値であれば受け付けます。
func (w StandardWeek) WeekNumber() (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(w.ID)))
	if err != nil || !d.IsInteger() || d.LessThan(minWeekNumber) || d.GreaterThan(maxWeekNumber) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekNumber, w.ID)
	}
	return int(d.IntPart()), nil
}

var (
	minWeekNumber = decimal.NewFromInt(math.MinInt32)
	maxWeekNumber = decimal.NewFromInt(math.MaxInt32)
)

// InfoEntry は年月単位の自由記述メモです。
type InfoEntry struct {
	ID         RemoteID `json:"id"`
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	Text       string   `json:"text"`
	EmployeeID RemoteID `json:"employee_id"`
}

// HourlyRate は社員ごとの時給履歴です。
type HourlyRate struct {
	EmployeeID RemoteID        `json:"employee_id"`
	Rate       decimal.Decimal `json:"rate"`
	ValidFrom  string          `json:"valid_from"`
}

// MonthlyPayment は社員ごとの月額支給履歴です。
type MonthlyPayment struct {
	EmployeeID RemoteID        `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	ValidFrom  string          `json:"valid_from"`
}

// Snapshot は 1 回の実行で取得した全コレクションです。
type Snapshot struct {
	Employees       []Employee
	Shifts          []Shift
	Schedules       []Schedule
	WorkRecords     []WorkRecord
	Holidays        []Holiday
	StandardWeeks   []StandardWeek
	InfoEntries     []InfoEntry
	HourlyRates     []HourlyRate
	MonthlyPayments []MonthlyPayment
}
