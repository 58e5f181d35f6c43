package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHolidayOn(t *testing.T) {
	cal := New([]Holiday{
		{Date: time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), Name: "Araw ng Kagitingan", Type: HolidayTypeRegular},
		{Date: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC), Name: "Ninoy Aquino Day", Type: HolidayTypeSpecial},
	})

	manila, _ := time.LoadLocation("Asia/Manila")
	h, ok := cal.HolidayOn(time.Date(2025, 4, 9, 0, 0, 0, 0, manila))
	assert.True(t, ok)
	assert.Equal(t, HolidayTypeRegular, h.Type)

	_, ok = cal.HolidayOn(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}
