package calendar

import (
	"context"
	"time"
)

type HolidayType string

const (
	HolidayTypeRegular HolidayType = "regular"
	HolidayTypeSpecial HolidayType = "special"
)

type Holiday struct {
	ID        string
	CompanyID string
	Date      time.Time
	Name      string
	Type      HolidayType
}

// Calendar indexes holidays by calendar date.
type Calendar struct {
	byDate map[string]Holiday
}

func New(holidays []Holiday) Calendar {
	c := Calendar{byDate: make(map[string]Holiday, len(holidays))}
	for _, h := range holidays {
		c.byDate[h.Date.Format(time.DateOnly)] = h
	}
	return c
}

// HolidayOn returns the holiday falling on the calendar date of date.
func (c Calendar) HolidayOn(date time.Time) (Holiday, bool) {
	h, ok := c.byDate[date.Format(time.DateOnly)]
	return h, ok
}

type HolidayRepository interface {
	ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]Holiday, error)
}
