package document

import (
	"fmt"
	"time"
)

// era is one Japanese calendar era; years count from 1 at start.
type era struct {
	name  string
	start time.Time
}

// Only eras a death-of-today document can be executed in.
var eras = []era{
	{"令和", time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)},
	{"平成", time.Date(1989, 1, 8, 0, 0, 0, 0, time.UTC)},
}

// FormatWareki renders t as an era-based date line, e.g. 令和 8 年 8 月 28 日,
// matching the layout the printed form expects.
func FormatWareki(t time.Time) string {
	for _, e := range eras {
		if !t.Before(e.start) {
			year := t.Year() - e.start.Year() + 1
			return fmt.Sprintf("%s %d 年 %d 月 %d 日", e.name, year, int(t.Month()), t.Day())
		}
	}
	// Pre-Heisei dates never occur for an execution date; fall back to Gregorian.
	return fmt.Sprintf("%d 年 %d 月 %d 日", t.Year(), int(t.Month()), t.Day())
}
