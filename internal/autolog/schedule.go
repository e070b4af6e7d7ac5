// Package autolog posts the daily supplement entries through the HTTP API,
// at most once per day.
//
// Each supplement carries a Schedule strategy deciding on which weekdays it
// is taken.
package autolog

import (
	"fmt"
	"strings"
	"time"
)

// Schedule decides whether a supplement is due on a given day.
type Schedule interface {
	IsDue(day time.Weekday) bool
	String() string
}

// Daily is due every day.
type Daily struct{}

func (Daily) IsDue(time.Weekday) bool { return true }

func (Daily) String() string { return "daily" }

// Weekdays is due only on the listed days.
type Weekdays []time.Weekday

func (w Weekdays) IsDue(day time.Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

func (w Weekdays) String() string {
	names := make([]string, len(w))
	for i, d := range w {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}

// Weekend is Friday through Sunday.
var Weekend = Weekdays{time.Friday, time.Saturday, time.Sunday}

var schedules = map[string]Schedule{
	"daily":   Daily{},
	"weekend": Weekend,
}

// ParseSchedule resolves a schedule name such as "daily" or "weekend", or
// a comma separated list of weekday abbreviations like "mon,wed".
func ParseSchedule(s string) (Schedule, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if sch, ok := schedules[key]; ok {
		return sch, nil
	}

	var days Weekdays
	for _, part := range strings.Split(key, ",") {
		d, ok := weekdayByPrefix(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("unknown schedule: %s", s)
		}
		days = append(days, d)
	}
	return days, nil
}

func weekdayByPrefix(s string) (time.Weekday, bool) {
	if len(s) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.HasPrefix(strings.ToLower(d.String()), s[:3]) {
			return d, true
		}
	}
	return 0, false
}
