package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaysPerYear is the ACT/365 day-count basis
const DaysPerYear = 365.0

// YearFraction returns the ACT/365 time between two dates
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / DaysPerYear
}

// ThirdFriday returns the standard monthly expiration of the given month
func ThirdFriday(year int, month time.Month, loc *time.Location) time.Time {
	firstFriday := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	for firstFriday.Weekday() != time.Friday {
		firstFriday = firstFriday.AddDate(0, 0, 1)
	}
	return firstFriday.AddDate(0, 0, 14)
}

// NextExpiration returns the next third Friday after now. Inside the
// expiration week the following month is used.
func NextExpiration(now time.Time) time.Time {
	thirdFriday := ThirdFriday(now.Year(), now.Month(), now.Location())
	weekStart := thirdFriday.AddDate(0, 0, -7)
	if now.Before(weekStart) {
		return thirdFriday
	}
	next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	return ThirdFriday(next.Year(), next.Month(), now.Location())
}

// ParseMaturity accepts a year fraction ("0.25"), an ISO date ("2024-06-21")
// or "next" for the next monthly expiration, and returns years from now.
func ParseMaturity(s string, now time.Time) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("maturity is empty")
	}
	if strings.EqualFold(s, "next") {
		return YearFraction(now, NextExpiration(now)), nil
	}
	if years, err := strconv.ParseFloat(s, 64); err == nil {
		if !(years > 0) {
			return 0, fmt.Errorf("maturity must be positive, got %s", s)
		}
		return years, nil
	}
	date, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return 0, fmt.Errorf("invalid maturity %q: want years or YYYY-MM-DD", s)
	}
	years := YearFraction(now, date)
	if !(years > 0) {
		return 0, fmt.Errorf("expiration %s is not in the future", s)
	}
	return years, nil
}
