package event

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

var dateOnlyUntil = regexp.MustCompile(`(?i)(^|;)UNTIL=\d{8}(;|$)`)

// Expand materializes one occurrence of base per start instant produced by rule,
// evaluating the rule in the location of base.StartsAt. See ExpandIn.
func Expand(base Event, rule string, limit int) ([]Event, error) {
	return ExpandIn(base, rule, base.StartsAt.Location(), limit)
}

// ExpandIn materializes one occurrence of base per start instant produced by rule.
// All occurrences keep the base duration, share a freshly minted series id and
// carry the rule text verbatim. base.StartsAt anchors the rule (DTSTART).
//
// The rule is evaluated on the wall clock of loc: BYDAY and the other BYxxx parts
// name local days, occurrences keep their local time across DST changes and a
// date-only UNTIL covers the whole local day.
//
// The rule must be bounded by COUNT or UNTIL. When limit is positive, a rule
// producing more than limit occurrences is rejected.
func ExpandIn(base Event, rule string, loc *time.Location, limit int) ([]Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	starts, err := occurrenceStarts(rule, base.StartsAt.In(loc), limit)
	if err != nil {
		return nil, err
	}

	duration := base.Duration()
	seriesId := uuid.New()
	occurrences := make([]Event, 0, len(starts))
	for _, start := range starts {
		occurrence := base
		occurrence.Id = uuid.Nil
		occurrence.StartsAt = start
		occurrence.EndsAt = start.Add(duration)
		occurrence.RecurringEventId = ptr(seriesId)
		occurrence.RecurrenceRule = ptr(rule)
		occurrences = append(occurrences, occurrence)
	}
	return occurrences, nil
}

// occurrenceStarts evaluates rule on the wall clock of dtstart's location.
func occurrenceStarts(rule string, dtstart time.Time, limit int) ([]time.Time, error) {
	text := strings.TrimSpace(rule)
	if !strings.Contains(text, "\n") {
		text = strings.TrimPrefix(text, "RRULE:")
	}
	if text == "" {
		return nil, fmt.Errorf("%w: rule is empty", ErrInvalidRule)
	}

	opt, err := rrule.StrToROptionInLocation(text, dtstart.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt.Count <= 0 && opt.Until.IsZero() {
		return nil, fmt.Errorf("%w: rule must be bounded by COUNT or UNTIL", ErrInvalidRule)
	}
	// A date-only UNTIL covers the whole day it names.
	if dateOnlyUntil.MatchString(text) {
		opt.Until = opt.Until.AddDate(0, 0, 1).Add(-time.Second)
	}
	opt.Dtstart = dtstart

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	var starts []time.Time
	next := r.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if limit > 0 && len(starts) == limit {
			return nil, fmt.Errorf("%w: rule produces more than %d occurrences", ErrInvalidRule, limit)
		}
		starts = append(starts, start)
	}
	return starts, nil
}

func ptr[T any](v T) *T {
	return &v
}
