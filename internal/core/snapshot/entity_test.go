package snapshot

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRemoteID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	cases := map[string]RemoteID{
		`"abc-1"`: "abc-1",
		`42`:      "42",
		`null`:    "",
	}
	for in, want := range cases {
		var got RemoteID
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("unmarshal %s returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("unmarshal %s: want %q got %q", in, want, got)
		}
	}

	var bad RemoteID
	if err := json.Unmarshal([]byte(`{"x":1}`), &bad); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestEmployee_NullableFields(t *testing.T) {
	t.Parallel()

	var e Employee
	raw := `{"id":"e1","name":null,"hourly_rate":13.5,"active":false}`
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	if e.Name != nil {
		t.Fatalf("expected nil name, got %v", *e.Name)
	}
	if e.HourlyRate == nil || e.HourlyRate.String() != "13.5" {
		t.Fatalf("unexpected hourly rate: %v", e.HourlyRate)
	}
	if e.MonthlyPayment != nil {
		t.Fatalf("expected absent monthly payment to stay nil")
	}
	if e.Active == nil || *e.Active {
		t.Fatalf("expected explicit false active flag")
	}
}

func TestStandardWeek_WeekNumber(t *testing.T) {
	t.Parallel()

	if n, err := (StandardWeek{ID: "2"}).WeekNumber(); err != nil || n != 2 {
		t.Fatalf("expected week 2, got %d (%v)", n, err)
	}
	for _, id := range []RemoteID{"abc", "1.5", "", "99999999999"} {
		if _, err := (StandardWeek{ID: id}).WeekNumber(); !errors.Is(err, ErrInvalidWeekNumber) {
			t.Fatalf("expected ErrInvalidWeekNumber for %q, got %v", id, err)
		}
	}
}

func TestStandardWeek_WeekNumberFromFloatID(t *testing.T) {
	t.Parallel()

	var w StandardWeek
	if err := json.Unmarshal([]byte(`{"id":1.0,"schedule_data":{}}`), &w); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	n, err := w.WeekNumber()
	if err != nil {
		t.Fatalf("expected integral float id to be accepted, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected week 1, got %d", n)
	}
}

func TestWeekData_PreservesOrder(t *testing.T) {
	t.Parallel()

	raw := `{"id":1,"schedule_data":{"1":{"s2":"e1","s1":"e2"},"0":{"s3":7},"4":[],"5":null}}`

	var w StandardWeek
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	data := w.ScheduleData
	if len(data) != 4 {
		t.Fatalf("expected 4 days, got %d", len(data))
	}
	if data[0].Key != "1" || data[1].Key != "0" {
		t.Fatalf("day order not preserved: %+v", data)
	}
	want := []Assignment{{ShiftID: "s2", EmployeeID: "e1"}, {ShiftID: "s1", EmployeeID: "e2"}}
	if len(data[0].Assignments) != 2 || data[0].Assignments[0] != want[0] || data[0].Assignments[1] != want[1] {
		t.Fatalf("assignment order not preserved: %+v", data[0].Assignments)
	}
	if data[1].Assignments[0].EmployeeID != "7" {
		t.Fatalf("numeric employee id not normalised: %+v", data[1].Assignments)
	}
	if len(data[2].Assignments) != 0 || len(data[3].Assignments) != 0 {
		t.Fatalf("non-object days should have no assignments: %+v", data[2:])
	}
}

func TestWeekData_StringEncoded(t *testing.T) {
	t.Parallel()

	var w WeekData
	if err := json.Unmarshal([]byte(`"{\"Monday\":{\"shiftA\":\"empA\"}}"`), &w); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if len(w) != 1 || w[0].Key != "Monday" || w[0].Assignments[0].EmployeeID != "empA" {
		t.Fatalf("unexpected week data: %+v", w)
	}
}

func TestWeekData_Invalid(t *testing.T) {
	t.Parallel()

	var w WeekData
	if err := json.Unmarshal([]byte(`[1,2]`), &w); !errors.Is(err, ErrInvalidWeekData) {
		t.Fatalf("expected ErrInvalidWeekData, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"0":{"s1":{"nested":true}}}`), &w); !errors.Is(err, ErrInvalidWeekData) {
		t.Fatalf("expected ErrInvalidWeekData for nested object, got %v", err)
	}
}
