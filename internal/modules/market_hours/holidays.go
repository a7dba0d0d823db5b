package market_hours

import "time"

// usHolidays returns the venue closure dates for a given year, normalized to
// midnight UTC. Weekend-anchored holidays are observed on the nearest weekday
// (Saturday moves to Friday, Sunday to Monday), matching exchange practice.
// New Year's Day is the exception: a Saturday January 1 is not observed, since
// the prior Friday belongs to the old year and the exchange does not close it.
func usHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	// New Year's Day
	newYear := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	switch newYear.Weekday() {
	case time.Saturday:
		// Unobserved.
	case time.Sunday:
		holidays = append(holidays, newYear.AddDate(0, 0, 1))
	default:
		holidays = append(holidays, newYear)
	}

	// Martin Luther King Jr. Day, third Monday in January
	holidays = append(holidays, nthWeekday(year, 1, time.Monday, 3))

	// Presidents Day, third Monday in February
	holidays = append(holidays, nthWeekday(year, 2, time.Monday, 3))

	// Good Friday, two days before Easter Sunday
	holidays = append(holidays, easterSunday(year).AddDate(0, 0, -2))

	// Memorial Day, last Monday in May
	holidays = append(holidays, lastWeekday(year, 5, time.Monday))

	// Juneteenth
	holidays = append(holidays, observed(time.Date(year, 6, 19, 0, 0, 0, 0, time.UTC)))

	// Independence Day
	holidays = append(holidays, observed(time.Date(year, 7, 4, 0, 0, 0, 0, time.UTC)))

	// Labor Day, first Monday in September
	holidays = append(holidays, nthWeekday(year, 9, time.Monday, 1))

	// Thanksgiving, fourth Thursday in November
	holidays = append(holidays, nthWeekday(year, 11, time.Thursday, 4))

	// Christmas
	holidays = append(holidays, observed(time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC)))

	return holidays
}

// easterSunday computes Easter for the Gregorian calendar using the
// anonymous computus. The result is midnight UTC.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// nthWeekday finds the nth occurrence of a weekday in a month.
func nthWeekday(year, month int, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	offset := int(weekday - date.Weekday())
	if offset < 0 {
		offset += 7
	}
	return date.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday finds the last occurrence of a weekday in a month.
func lastWeekday(year, month int, weekday time.Weekday) time.Time {
	date := time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC)
	offset := int(date.Weekday() - weekday)
	if offset < 0 {
		offset += 7
	}
	return date.AddDate(0, 0, -offset)
}

// observed shifts a weekend-dated holiday to the adjacent weekday.
func observed(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}
