package hook

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// TimerKind distinguishes the three time-trigger shapes spec.md names.
type TimerKind int

const (
	TimerInterval TimerKind = iota
	TimerHourly
	TimerDaily
)

// ParsedTimer is a timer-* trigger string broken into its kind and, for
// TimerInterval, its period.
type ParsedTimer struct {
	Kind   TimerKind
	Period time.Duration
}

// minInterval is the minimum timer-Nms period. N is parsed as a
// positive whole number of milliseconds, so every accepted trigger
// already meets this floor; "timer-0ms", negative, fractional and
// non-numeric values are rejected as malformed.
const minInterval = time.Millisecond

// ParseTimer parses "timer-Nms", "timer-hourly", or "timer-daily".
func ParseTimer(s string) (ParsedTimer, error) {
	switch {
	case s == "timer-hourly":
		return ParsedTimer{Kind: TimerHourly}, nil
	case s == "timer-daily":
		return ParsedTimer{Kind: TimerDaily}, nil
	case strings.HasPrefix(s, "timer-") && strings.HasSuffix(s, "ms"):
		numStr := strings.TrimSuffix(strings.TrimPrefix(s, "timer-"), "ms")
		n, err := strconv.Atoi(numStr)
		if err != nil || n <= 0 {
			return ParsedTimer{}, fmt.Errorf("hook: malformed timer trigger %q", s)
		}
		period := time.Duration(n) * time.Millisecond
		if period < minInterval {
			period = minInterval
		}
		return ParsedTimer{Kind: TimerInterval, Period: period}, nil
	default:
		return ParsedTimer{}, fmt.Errorf("hook: unrecognized timer trigger %q", s)
	}
}

// stableHash returns a deterministic hash in [0, modulo), used to
// scatter hourly/daily timer triggers across the window so hooks with
// the same named schedule don't all fire in the same instant.
func stableHash(s string, modulo int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(modulo))
}

// scatteredHourlyCron returns a 6-field (seconds-enabled) cron
// expression that fires once an hour, at a minute/second deterministically
// derived from hookIRI so hourly hooks don't all collide on the hour.
func scatteredHourlyCron(hookIRI string) string {
	minute := stableHash(hookIRI, 60)
	second := stableHash(hookIRI+":s", 60)
	return fmt.Sprintf("%d %d * * * *", second, minute)
}

// scatteredDailyCron returns a 6-field cron expression that fires once
// a day, at an hour/minute/second deterministically derived from hookIRI.
func scatteredDailyCron(hookIRI string) string {
	hour := stableHash(hookIRI, 24)
	minute := stableHash(hookIRI+":m", 60)
	second := stableHash(hookIRI+":s", 60)
	return fmt.Sprintf("%d %d %d * * *", second, minute, hour)
}

// CronExpr returns the robfig/cron (seconds-enabled) expression a
// parsed hourly/daily timer resolves to for a given hook, or "" for
// TimerInterval triggers (which the scheduler runs on a plain ticker
// instead, since cron's minimum granularity is coarser than 1ms).
func CronExpr(hookIRI string, t ParsedTimer) string {
	switch t.Kind {
	case TimerHourly:
		return scatteredHourlyCron(hookIRI)
	case TimerDaily:
		return scatteredDailyCron(hookIRI)
	default:
		return ""
	}
}
