package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

// DefaultStepMinutes is the slot start granularity.
const DefaultStepMinutes = 15

// DefaultDurations are the offerable session lengths in minutes.
var DefaultDurations = []int{30, 60}

// Interval is a half-open [Start, End) UTC range.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && i.End.After(start)
}

type SlotOption struct {
	DurationMinutes int       `json:"duration_minutes"`
	End             time.Time `json:"end"`
}

// Slot is a bookable UTC start instant with the durations still available at
// that start.
type Slot struct {
	Start   time.Time    `json:"start"`
	Options []SlotOption `json:"options"`
}

// Engine computes bookable slots from weekly rules and date exceptions. It is
// read-only and side-effect-free; all local/UTC conversion happens here, in
// the single fixed business timezone.
type Engine struct {
	loc       *time.Location
	step      int
	durations []int
}

func NewEngine(loc *time.Location) *Engine {
	return &Engine{
		loc:       loc,
		step:      DefaultStepMinutes,
		durations: append([]int(nil), DefaultDurations...),
	}
}

// minuteWindow is a half-open window in minutes since local midnight.
type minuteWindow struct {
	start int
	end   int
}

func (w minuteWindow) intersects(start, end int) bool {
	return w.start < end && w.end > start
}

// ParseClock parses "15:04" into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return hours*60 + minutes, nil
}

// Slots generates the ordered, deduplicated slot groups inside
// [rangeStart, rangeEnd) for the given rules, exceptions and busy intervals.
func (e *Engine) Slots(
	rules []models.AvailabilityRule,
	exceptions []models.AvailabilityException,
	busy []Interval,
	rangeStart time.Time,
	rangeEnd time.Time,
) []Slot {
	if !rangeEnd.After(rangeStart) {
		return []Slot{}
	}

	exceptionsByDate := make(map[string][]models.AvailabilityException)
	for _, exception := range exceptions {
		key := exception.Date.Format("2006-01-02")
		exceptionsByDate[key] = append(exceptionsByDate[key], exception)
	}

	// options accumulates duration -> UTC end per UTC start instant; windows
	// from overlapping rules merge here instead of duplicating starts.
	options := make(map[time.Time]map[int]time.Time)

	localStart := rangeStart.In(e.loc)
	localLast := rangeEnd.In(e.loc).Add(-time.Nanosecond)
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, e.loc)
	lastDay := time.Date(localLast.Year(), localLast.Month(), localLast.Day(), 0, 0, 0, 0, e.loc)

	for !day.After(lastDay) {
		e.collectDay(options, day, rules, exceptionsByDate[day.Format("2006-01-02")], busy, rangeStart, rangeEnd)
		day = day.AddDate(0, 0, 1)
	}

	slots := make([]Slot, 0, len(options))
	for start, byDuration := range options {
		slot := Slot{Start: start, Options: make([]SlotOption, 0, len(byDuration))}
		for duration, end := range byDuration {
			slot.Options = append(slot.Options, SlotOption{DurationMinutes: duration, End: end})
		}
		sort.Slice(slot.Options, func(i, j int) bool {
			return slot.Options[i].DurationMinutes < slot.Options[j].DurationMinutes
		})
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

func (e *Engine) collectDay(
	options map[time.Time]map[int]time.Time,
	day time.Time,
	rules []models.AvailabilityRule,
	dayExceptions []models.AvailabilityException,
	busy []Interval,
	rangeStart time.Time,
	rangeEnd time.Time,
) {
	allDayBlocked := false
	for _, exception := range dayExceptions {
		if exception.Type == models.ExceptionTypeBlocked && exception.StartTime == nil && exception.EndTime == nil {
			allDayBlocked = true
			break
		}
	}

	windows := make([]minuteWindow, 0, len(rules))
	if !allDayBlocked {
		dow := int(day.Weekday())
		for _, rule := range rules {
			if !rule.IsActive || rule.DayOfWeek != dow {
				continue
			}
			window, ok := clockWindow(rule.StartTime, rule.EndTime)
			if ok {
				windows = append(windows, window)
			}
		}
	}

	// Custom exceptions add windows on top of the rules, even on a fully
	// blocked day.
	var blocks []minuteWindow
	for _, exception := range dayExceptions {
		switch exception.Type {
		case models.ExceptionTypeCustom:
			if exception.StartTime == nil || exception.EndTime == nil {
				continue
			}
			if window, ok := clockWindow(*exception.StartTime, *exception.EndTime); ok {
				windows = append(windows, window)
			}
		case models.ExceptionTypeBlocked:
			if exception.StartTime == nil || exception.EndTime == nil {
				continue
			}
			if block, ok := clockWindow(*exception.StartTime, *exception.EndTime); ok {
				blocks = append(blocks, block)
			}
		}
	}

	for _, window := range windows {
		for start := window.start; start < window.end; start += e.step {
			for _, duration := range e.durations {
				end := start + duration
				if end > window.end {
					continue
				}
				if intersectsAny(blocks, start, end) {
					continue
				}

				utcStart := e.localMinute(day, start)
				utcEnd := e.localMinute(day, end)
				if utcStart.Before(rangeStart) || utcEnd.After(rangeEnd) {
					continue
				}
				if overlapsBusy(busy, utcStart, utcEnd) {
					continue
				}

				byDuration, ok := options[utcStart]
				if !ok {
					byDuration = make(map[int]time.Time, len(e.durations))
					options[utcStart] = byDuration
				}
				byDuration[duration] = utcEnd
			}
		}
	}
}

// localMinute converts a minute offset on a local calendar day to a UTC
// instant. time.Date normalizes overflow minutes, so DST transitions resolve
// through the location rather than a cached offset.
func (e *Engine) localMinute(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, e.loc).UTC()
}

func clockWindow(startTime, endTime string) (minuteWindow, bool) {
	start, err := ParseClock(startTime)
	if err != nil {
		return minuteWindow{}, false
	}
	end, err := ParseClock(endTime)
	if err != nil || end <= start {
		return minuteWindow{}, false
	}
	return minuteWindow{start: start, end: end}, true
}

func intersectsAny(blocks []minuteWindow, start, end int) bool {
	for _, block := range blocks {
		if block.intersects(start, end) {
			return true
		}
	}
	return false
}

func overlapsBusy(busy []Interval, start, end time.Time) bool {
	for _, interval := range busy {
		if interval.Overlaps(start, end) {
			return true
		}
	}
	return false
}
