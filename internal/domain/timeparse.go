package domain

import (
	"regexp"
	"strings"
	"time"
)

// timeLayouts are the accepted timestamp forms, most common first. The
// month-name forms come from scraped pages, the numeric forms from cache
// files and the API.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan. 2, 2006, 3:04 PM",
	"Jan 2, 2006, 3:04 PM",
	"Jan. 2, 2006, 3 PM",
	"Jan 2, 2006, 3 PM",
	"January 2, 2006, 3:04 PM",
	"January 2, 2006, 3 PM",
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

// ParseTime parses a loosely formatted timestamp. It tolerates the "a.m." /
// "p.m." spellings and non-breaking spaces seen in scraped pages. Returns a
// zero time when nothing matches.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	cleaned := strings.ReplaceAll(value, "a.m.", "AM")
	cleaned = strings.ReplaceAll(cleaned, "p.m.", "PM")
	cleaned = strings.ReplaceAll(cleaned, " ", " ")
	cleaned = strings.TrimSpace(multiSpaceRe.ReplaceAllString(cleaned, " "))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders a timestamp at minute precision, the canonical form for
// cache files and display. Zero times render as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Truncate(time.Minute).Format("2006-01-02 15:04")
}
