package calendar

import (
	"errors"
	"time"
)

// Grid dimensions. Every month is laid out on the same 6x7 grid.
const (
	Weeks       = 6
	DaysPerWeek = 7
	Cells       = Weeks * DaysPerWeek
)

// Supported year range.
const (
	MinYear = 1
	MaxYear = 9999
)

var (
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrInvalidYear  = errors.New("year must be between 1 and 9999")
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Validate checks the month and year ranges.
// PRE: none
// POST: returns nil if ym can be rendered
func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return ErrInvalidMonth
	}
	if ym.Year < MinYear || ym.Year > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

// Prev returns the month before ym, rolling back into December of the previous year.
func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

// Next returns the month after ym, rolling into January of the next year.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Cell is one square of the grid. A zero Date marks a blank cell.
type Cell struct {
	Date  time.Time
	Today bool
}

// IsBlank reports whether the cell lies outside the rendered month.
func (c Cell) IsBlank() bool {
	return c.Date.IsZero()
}

// Day returns the day of month, or 0 for a blank cell.
func (c Cell) Day() int {
	if c.IsBlank() {
		return 0
	}
	return c.Date.Day()
}

// Month is the rendered grid for one calendar month.
// INVARIANT: len(Weeks) == 6 and every week has 7 cells, Sunday first.
type Month struct {
	YearMonth
	Weeks [][]Cell
	Prev  YearMonth
	Next  YearMonth
}

// Cells returns the grid flattened row by row.
func (m Month) Cells() []Cell {
	out := make([]Cell, 0, Cells)
	for _, w := range m.Weeks {
		out = append(out, w...)
	}
	return out
}

// Build lays out ym on a Sunday-first 6x7 grid.
// Days outside the month are left blank rather than showing adjacent months.
// PRE: ym passes Validate
// POST: returns a Month with exactly 42 cells; the cell matching today is flagged
func Build(ym YearMonth, today time.Time) (Month, error) {
	if err := ym.Validate(); err != nil {
		return Month{}, err
	}

	first := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
	lead := int(first.Weekday()) // Sunday == 0
	daysInMonth := first.AddDate(0, 1, -1).Day()
	ty, tm, td := today.Date()

	cells := make([]Cell, Cells)
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(ym.Year, ym.Month, d, 0, 0, 0, 0, time.UTC)
		cells[lead+d-1] = Cell{
			Date:  date,
			Today: ty == ym.Year && tm == ym.Month && td == d,
		}
	}

	weeks := make([][]Cell, Weeks)
	for i := range weeks {
		weeks[i] = cells[i*DaysPerWeek : (i+1)*DaysPerWeek]
	}

	return Month{
		YearMonth: ym,
		Weeks:     weeks,
		Prev:      ym.Prev(),
		Next:      ym.Next(),
	}, nil
}
