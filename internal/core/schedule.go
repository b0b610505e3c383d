package core

// PaySchedule decides on which calendar days a recurring salary lands.
type PaySchedule interface {
	IsPayday(d Date) bool
}

// SemiMonthly pays on the 15th and on the last day of every month.
type SemiMonthly struct{}

// IsPayday returns true on the 15th and on the month's actual last day.
func (SemiMonthly) IsPayday(d Date) bool {
	day := d.Day()
	return day == 15 || day == d.LastDayOfMonth()
}
