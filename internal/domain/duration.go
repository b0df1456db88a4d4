package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultGameSpeedFactor is how much faster AoE2 game time runs than real
// time on the standard ranked speed.
const DefaultGameSpeedFactor = 1.7

var durationRe = regexp.MustCompile(`^(?:(\d+)h\s*)?(\d+)m\s*(\d+)s$`)

// ParseDuration parses the "1h 2m 3s" / "12m 30s" game-time duration string
// into seconds. ok is false for empty or malformed strings.
func ParseDuration(s string) (seconds int, ok bool) {
	groups := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if groups == nil {
		return 0, false
	}
	hours := 0
	if groups[1] != "" {
		hours, _ = strconv.Atoi(groups[1])
	}
	minutes, _ := strconv.Atoi(groups[2])
	secs, _ := strconv.Atoi(groups[3])
	return hours*3600 + minutes*60 + secs, true
}

// RealDuration converts a game-time duration string into wall-clock time
// using the given speed factor (DefaultGameSpeedFactor when zero).
func RealDuration(s string, speedFactor float64) (time.Duration, bool) {
	gameSeconds, ok := ParseDuration(s)
	if !ok {
		return 0, false
	}
	if speedFactor == 0 {
		speedFactor = DefaultGameSpeedFactor
	}
	return time.Duration(float64(gameSeconds) / speedFactor * float64(time.Second)), true
}

// FormatDuration renders seconds as the "1h 2m 3s" form used everywhere else,
// dropping the hour part when zero.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// DurationBucket is a win-rate bucket over game-time duration.
type DurationBucket struct {
	Label string
	Lower int // inclusive, seconds
	Upper int // exclusive, seconds; 0 = unbounded
}

// DurationBuckets are the analytics buckets, shortest first.
var DurationBuckets = []DurationBucket{
	{Label: "< 5m", Lower: 0, Upper: 5 * 60},
	{Label: "5-15m", Lower: 5 * 60, Upper: 15 * 60},
	{Label: "15-25m", Lower: 15 * 60, Upper: 25 * 60},
	{Label: "25-40m", Lower: 25 * 60, Upper: 40 * 60},
	{Label: ">= 40m", Lower: 40 * 60, Upper: 0},
}

// BucketLabel returns the bucket label for a duration in seconds, or "" when
// seconds is negative.
func BucketLabel(seconds int) string {
	if seconds < 0 {
		return ""
	}
	for _, b := range DurationBuckets {
		if b.Upper == 0 && seconds >= b.Lower {
			return b.Label
		}
		if b.Upper != 0 && seconds >= b.Lower && seconds < b.Upper {
			return b.Label
		}
	}
	return ""
}
