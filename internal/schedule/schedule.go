package schedule

import (
	"sort"
	"time"

	"github.com/herbalhaven/booking-core/internal/model"
)

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share any instant. Touching endpoints do not overlap,
// so back-to-back slots are allowed.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidateRange checks a prospective slot window against now. It returns a
// ValidationError naming the offending field, or nil.
func ValidateRange(start, end, now time.Time) error {
	if !end.After(start) {
		return model.NewValidationError("end_time", model.ErrInvalidRange)
	}
	if !start.After(now) {
		return model.NewValidationError("start_time", model.ErrInThePast)
	}
	return nil
}

// DayGroup is a presentation view of slots sharing a calendar date (UTC).
type DayGroup struct {
	Date  string                    `json:"date"` // 2006-01-02
	Slots []*model.AvailabilitySlot `json:"slots"`
}

// GroupByDate buckets time-ordered slots by UTC calendar date, preserving
// order inside each bucket. Groups come back in date order. The grouping is
// derived from the flat sequence and never stored.
func GroupByDate(slots []*model.AvailabilitySlot) []DayGroup {
	buckets := make(map[string][]*model.AvailabilitySlot)
	for _, s := range slots {
		day := s.StartTime.UTC().Format("2006-01-02")
		buckets[day] = append(buckets[day], s)
	}

	dates := make([]string, 0, len(buckets))
	for day := range buckets {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	groups := make([]DayGroup, 0, len(dates))
	for _, day := range dates {
		groups = append(groups, DayGroup{Date: day, Slots: buckets[day]})
	}
	return groups
}
