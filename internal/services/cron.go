package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed standard 5-field cron expression:
// minute hour day-of-month month day-of-week. Supported syntax per field:
// "*", a number, a comma list, a range "n-m", and steps "*/n".
type CronExpression struct {
	minutes     map[int]bool
	hours       map[int]bool
	daysOfMonth map[int]bool
	months      map[int]bool
	daysOfWeek  map[int]bool
}

func ParseCron(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minutes, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	hours, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	daysOfMonth, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	months, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	daysOfWeek, err := parseCronField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-week field: %w", err)
	}
	// Day 7 is an alias for Sunday.
	if daysOfWeek[7] {
		delete(daysOfWeek, 7)
		daysOfWeek[0] = true
	}

	return &CronExpression{
		minutes:     minutes,
		hours:       hours,
		daysOfMonth: daysOfMonth,
		months:      months,
		daysOfWeek:  daysOfWeek,
	}, nil
}

// NextRun returns the first time strictly after the given time that matches
// the expression, in UTC.
func (c *CronExpression) NextRun(after time.Time) time.Time {
	t := after.UTC().Truncate(time.Minute).Add(time.Minute)

	// Bounded scan; anything valid matches well within four years.
	limit := t.AddDate(4, 0, 0)
	for t.Before(limit) {
		if c.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return t
}

func (c *CronExpression) matches(t time.Time) bool {
	return c.minutes[t.Minute()] &&
		c.hours[t.Hour()] &&
		c.daysOfMonth[t.Day()] &&
		c.months[int(t.Month())] &&
		c.daysOfWeek[int(t.Weekday())]
}

func parseCronField(field string, min, max int) (map[int]bool, error) {
	values := make(map[int]bool)

	for _, part := range strings.Split(field, ",") {
		step := 1
		if idx := strings.Index(part, "/"); idx >= 0 {
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("bad step in %q", part)
			}
			step = s
			part = part[:idx]
		}

		lo, hi := min, max
		switch {
		case part == "*":
			// full range
		case strings.Contains(part, "-"):
			bounds := strings.SplitN(part, "-", 2)
			l, err1 := strconv.Atoi(bounds[0])
			h, err2 := strconv.Atoi(bounds[1])
			if err1 != nil || err2 != nil || l > h {
				return nil, fmt.Errorf("bad range %q", part)
			}
			lo, hi = l, h
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("bad value %q", part)
			}
			lo, hi = v, v
		}

		if lo < min || hi > max {
			return nil, fmt.Errorf("value out of range [%d,%d] in %q", min, max, part)
		}
		for v := lo; v <= hi; v += step {
			values[v] = true
		}
	}

	return values, nil
}
