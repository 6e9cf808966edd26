package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Assignment は週テンプレート内のシフトと社員の組です。いずれもリモート ID です。
type Assignment struct {
	ShiftID    RemoteID
	EmployeeID RemoteID
}

// WeekDay は曜日キーと、その日の割り当てを元の順序で保持します。
type WeekDay struct {
	Key         string
	Assignments []Assignment
}

// WeekData は schedule_data を曜日 → (シフト, 社員) の順序付きリストとして表現します。
type WeekData []WeekDay

// UnmarshalJSON は JSON オブジェクトのキー順序を保ったまま schedule_data を読み込みます。
// 文字列としてエンコードされた JSON も受け付けます。
func (w *WeekData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*w = nil
		return nil
	}
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWeekData, err)
		}
		return w.UnmarshalJSON([]byte(inner))
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	days := WeekData{}
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: day %s: %v", ErrInvalidWeekData, key, err)
		}

		assignments, err := decodeAssignments(raw)
		if err != nil {
			return fmt.Errorf("day %s: %w", key, err)
		}
		days = append(days, WeekDay{Key: key, Assignments: assignments})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	*w = days
	return nil
}

// 値がオブジェクト以外の日は割り当てなしとして扱います。
func decodeAssignments(raw json.RawMessage) ([]Assignment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var out []Assignment
	for dec.More() {
		shiftID, err := objectKey(dec)
		if err != nil {
			return nil, err
		}

		var employeeID RemoteID
		if err := dec.Decode(&employeeID); err != nil {
			return nil, fmt.Errorf("%w: shift %s: %v", ErrInvalidWeekData, shiftID, err)
		}
		out = append(out, Assignment{ShiftID: RemoteID(shiftID), EmployeeID: employeeID})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWeekData, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidWeekData, want, tok)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWeekData, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrInvalidWeekData, tok)
	}
	return key, nil
}
