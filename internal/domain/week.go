package domain

import (
	"fmt"
	"time"
)

// VoteWeek identifies one calendar voting week. Votes are deduplicated per
// (voter, product, VoteWeek).
type VoteWeek struct {
	Number int
	Year   int
}

// WeekOf computes the voting week for a point in time.
//
// Week 1 starts on January 1st; week boundaries are aligned to the weekday of
// January 1st, so weekNumber = ceil((dayOfYear + weekdayOfJan1) / 7). The year
// is the plain calendar year. A trailing partial week at the end of a long
// year is clamped to 53.
func WeekOf(t time.Time) VoteWeek {
	yearStart := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	offset := int(yearStart.Weekday())

	week := (t.YearDay() + offset + 6) / 7
	if week < 1 {
		week = 1
	}
	if week > 53 {
		week = 53
	}

	return VoteWeek{Number: week, Year: t.Year()}
}

// String formats the week as "<year>-W<number>", e.g. "2025-W10".
func (w VoteWeek) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Number)
}
