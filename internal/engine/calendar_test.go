package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToLocalDateKnownDates(t *testing.T) {
	nowruz := ToLocalDate(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1403, nowruz.Year)
	assert.Equal(t, 1, nowruz.Month)
	assert.Equal(t, 1, nowruz.Day)

	mehr := ToLocalDate(time.Date(2023, 9, 23, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1402, mehr.Year)
	assert.Equal(t, 7, mehr.Month)
	assert.Equal(t, 1, mehr.Day)

	dey := ToLocalDate(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1402, dey.Year)
	assert.Equal(t, 10, dey.Month)
	assert.Equal(t, 11, dey.Day)
}

func TestSchoolYearSpansTwoLocalYears(t *testing.T) {
	autumn := ToLocalDate(time.Date(2023, 10, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 7, autumn.Month)
	assert.Equal(t, 1402, autumn.SchoolYear())

	spring := ToLocalDate(time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, spring.Month)
	assert.Equal(t, 1403, spring.Year)
	assert.Equal(t, 1402, spring.SchoolYear())
}

func TestSchoolYearBounds(t *testing.T) {
	from, to := SchoolYearBounds(1402)

	start := ToLocalDate(from.Add(12 * time.Hour))
	assert.Equal(t, 1402, start.Year)
	assert.Equal(t, 7, start.Month)
	assert.Equal(t, 1, start.Day)

	end := ToLocalDate(to.Add(12 * time.Hour))
	assert.Equal(t, 1403, end.Year)
	assert.Equal(t, 7, end.Month)

	assert.True(t, to.After(from))
	assert.False(t, ToLocalDate(to.Add(-12*time.Hour)).InScope(1403, 0))
}

func TestInScopeHonorsOptionalMonth(t *testing.T) {
	d := ToLocalDate(time.Date(2023, 11, 5, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 8, d.Month)

	assert.True(t, d.InScope(1402, 0))
	assert.True(t, d.InScope(1402, 8))
	assert.False(t, d.InScope(1402, 7))
	assert.False(t, d.InScope(1401, 8))
}
