package plan

import (
	"encoding/json"
	"fmt"
)

type weekAssignmentJSON struct {
	StaffID string `json:"staff_id"`
	ShiftID string `json:"shift_id"`
}

// scheduleData は週テンプレートをローカル形式 {"Montag": [{"staff_id", "shift_id"}]} に変換します。
// 同じ曜日名に変換されるキーが複数ある場合は後のものが優先されます。
func scheduleData(days []weekDayRow) (string, error) {
	data := make(map[string][]weekAssignmentJSON, len(days))
	for _, d := range days {
		list := make([]weekAssignmentJSON, 0, len(d.assignments))
		for _, as := range d.assignments {
			list = append(list, weekAssignmentJSON{StaffID: as.Employee.String(), ShiftID: as.Shift.String()})
		}
		data[d.name] = list
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("plan: encode schedule data: %w", err)
	}
	return string(b), nil
}
