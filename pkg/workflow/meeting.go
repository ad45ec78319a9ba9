package workflow

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	shortMeetingDuration = "30 minutes"
	longMeetingDuration  = "60 minutes"
)

// MeetingDetails holds the hints pulled out of a meeting request.
type MeetingDetails struct {
	Participants []string
	Topic        string
	Time         string
	Duration     string
}

var (
	participantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`with\s+([a-zA-Z\s]+?)(?:\s+about|\s+regarding|\s+on|\s+for|\n?\z)`),
		regexp.MustCompile(`meet\s+([a-zA-Z\s]+?)(?:\s+about|\s+regarding|\s+on|\s+for|\n?\z)`),
	}

	topicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`about\s+([^,\n]+?)(?:\s+(?:next|on|at)|\n?\z)`),
		regexp.MustCompile(`regarding\s+([^,\n]+?)(?:\s+(?:next|on|at)|\n?\z)`),
		regexp.MustCompile(`for\s+([^,\n]+?)(?:\s+(?:next|on|at)|\n?\z)`),
	}

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(next\s+\w+(?:\s+at\s+\d+(?::\d+)?\s*(?:am|pm)?)?)`),
		regexp.MustCompile(`(on\s+\w+(?:\s+at\s+\d+(?::\d+)?\s*(?:am|pm)?)?)`),
		regexp.MustCompile(`(at\s+\d+(?::\d+)?\s*(?:am|pm)?)`),
		regexp.MustCompile(`(\d+(?::\d+)?\s*(?:am|pm))`),
	}
)

// ExtractMeetingDetails pattern-matches participants, topic, time and
// duration out of a request. Fields without a match are left empty; the
// duration is always set.
func ExtractMeetingDetails(text string) MeetingDetails {
	lower := strings.ToLower(text)
	details := MeetingDetails{Duration: shortMeetingDuration}

	if participant, ok := firstMatch(participantPatterns, lower, func(v string) bool {
		return len(v) > 2 && len(v) < 50
	}); ok {
		details.Participants = []string{titleCase(participant)}
	}

	if topic, ok := firstMatch(topicPatterns, lower, func(v string) bool {
		return len(v) > 3
	}); ok {
		details.Topic = titleCase(topic)
	}

	for _, pattern := range timePatterns {
		if match := pattern.FindStringSubmatch(lower); match != nil {
			details.Time = strings.TrimSpace(match[1])
			break
		}
	}

	if strings.Contains(lower, "planning") || strings.Contains(lower, "review") {
		details.Duration = longMeetingDuration
	}

	return details
}

// firstMatch returns the trimmed capture of the first pattern that matches.
// A match rejected by accept ends the search for that pattern only.
func firstMatch(patterns []*regexp.Regexp, text string, accept func(string) bool) (string, bool) {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		if accept(value) {
			return value, true
		}
	}
	return "", false
}

// titleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "q1 planning" becomes "Q1 Planning".
func titleCase(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	previousLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			if previousLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			previousLetter = true
			continue
		}
		b.WriteRune(r)
		previousLetter = false
	}

	return b.String()
}
