// Package stats derives message counts per day, week and month from an
// account's message list. Every bucket is a half-open [start, next start)
// window in the configured location, so adjacent buckets never share an instant.
package stats

import (
	"math"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
)

const (
	DayBuckets   = 30
	WeekBuckets  = 12
	MonthBuckets = 12
)

type Bucket struct {
	Label string
	Start time.Time
	End   time.Time // exclusive
	Count int
}

type Statistics struct {
	Total     int
	AvgPerDay float64
	PerDay    []Bucket
	PerWeek   []Bucket
	PerMonth  []Bucket
}

// Compute is pure: it reads messages and now and nothing else. A nil loc means UTC.
func Compute(messages []domain.Message, now time.Time, loc *time.Location) Statistics {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	s := Statistics{
		Total:     len(messages),
		AvgPerDay: averagePerDay(messages, now),
		PerDay:    make([]Bucket, DayBuckets),
		PerWeek:   make([]Bucket, WeekBuckets),
		PerMonth:  make([]Bucket, MonthBuckets),
	}

	for i := range s.PerDay {
		start := today.AddDate(0, 0, -(DayBuckets - 1 - i))
		s.PerDay[i] = Bucket{
			Label: start.Format("2006-01-02"),
			Start: start,
			End:   start.AddDate(0, 0, 1),
		}
	}

	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	for i := range s.PerWeek {
		start := weekStart.AddDate(0, 0, -7*(WeekBuckets-1-i))
		s.PerWeek[i] = Bucket{
			Label: start.Format("2006-01-02") + " to " + start.AddDate(0, 0, 6).Format("2006-01-02"),
			Start: start,
			End:   start.AddDate(0, 0, 7),
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	for i := range s.PerMonth {
		start := monthStart.AddDate(0, -(MonthBuckets - 1 - i), 0)
		s.PerMonth[i] = Bucket{
			Label: start.Format("Jan 2006"),
			Start: start,
			End:   start.AddDate(0, 1, 0),
		}
	}

	for _, m := range messages {
		count(s.PerDay, m.CreatedAt)
		count(s.PerWeek, m.CreatedAt)
		count(s.PerMonth, m.CreatedAt)
	}
	return s
}

func averagePerDay(messages []domain.Message, now time.Time) float64 {
	if len(messages) == 0 {
		return 0
	}
	earliest := messages[0].CreatedAt
	for _, m := range messages[1:] {
		if m.CreatedAt.Before(earliest) {
			earliest = m.CreatedAt
		}
	}
	days := math.Ceil(now.Sub(earliest).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return math.Round(float64(len(messages))/days*100) / 100
}

// count increments the bucket containing t. Buckets are sorted and disjoint.
func count(buckets []Bucket, t time.Time) {
	for i := range buckets {
		if !t.Before(buckets[i].Start) && t.Before(buckets[i].End) {
			buckets[i].Count++
			return
		}
	}
}
