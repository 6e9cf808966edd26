package plan

import "strings"

var dayNames = map[string]string{
	"0": "Montag",
	"1": "Dienstag",
	"2": "Mittwoch",
	"3": "Donnerstag",
	"4": "Freitag",
	"5": "Samstag",

	"monday":    "Montag",
	"tuesday":   "Dienstag",
	"wednesday": "Mittwoch",
	"thursday":  "Donnerstag",
	"friday":    "Freitag",
	"saturday":  "Samstag",

	"montag":     "Montag",
	"dienstag":   "Dienstag",
	"mittwoch":   "Mittwoch",
	"donnerstag": "Donnerstag",
	"freitag":    "Freitag",
	"samstag":    "Samstag",
}

// DayName は schedule_data の曜日キーをローカルの曜日名に変換します。
// 未知のキーは "Tag<key>" になります。
func DayName(key string) string {
	if name, ok := dayNames[strings.ToLower(strings.TrimSpace(key))]; ok {
		return name
	}
	return "Tag" + key
}
