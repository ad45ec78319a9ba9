package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMeetingDetails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want MeetingDetails
	}{
		{
			name: "full request",
			text: "meet with Sarah about Q1 planning next Monday at 2pm",
			want: MeetingDetails{
				Participants: []string{"Sarah"},
				Topic:        "Q1 Planning",
				Time:         "next monday at 2pm",
				Duration:     "60 minutes",
			},
		},
		{
			name: "regarding and on",
			text: "Set up a call with the design team regarding the budget on friday",
			want: MeetingDetails{
				Participants: []string{"The Design Team"},
				Topic:        "The Budget",
				Time:         "on friday",
				Duration:     "30 minutes",
			},
		},
		{
			name: "bare time",
			text: "Quarterly review at 10:30 am",
			want: MeetingDetails{
				Time:     "at 10:30 am",
				Duration: "60 minutes",
			},
		},
		{
			name: "short participant falls through to meet pattern",
			text: "meet with al",
			want: MeetingDetails{Participants: []string{"With Al"}, Duration: "30 minutes"},
		},
		{
			name: "short topic rejected",
			text: "lunch about it",
			want: MeetingDetails{Duration: "30 minutes"},
		},
		{
			name: "topic before trailing newline",
			text: "schedule a call about budget review\n",
			want: MeetingDetails{Topic: "Budget Review", Duration: "60 minutes"},
		},
		{
			name: "participant before trailing newline",
			text: "lunch with Maria Lopez\n",
			want: MeetingDetails{Participants: []string{"Maria Lopez"}, Duration: "30 minutes"},
		},
		{
			name: "nothing to extract",
			text: "",
			want: MeetingDetails{Duration: "30 minutes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMeetingDetails(tt.text))
		})
	}
}

func TestExtractMeetingDetailsIsTotalAndIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"with",
		"meet",
		"about",
		"at 99",
		"next",
		"REVIEW",
		"Planning!!!",
		"with " + strings.Repeat("a", 200),
		"about ,,,, next at on for",
		"meet 👋 with 日本 about ünïcödé at 7pm",
		"line one\nwith bob\nabout budget",
	}

	for _, input := range inputs {
		first := ExtractMeetingDetails(input)
		second := ExtractMeetingDetails(input)
		assert.Equal(t, first, second, "input %q", input)
		assert.Contains(t, []string{"30 minutes", "60 minutes"}, first.Duration, "input %q", input)
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"q1 planning":     "Q1 Planning",
		"sarah":           "Sarah",
		"the DESIGN team": "The Design Team",
		"o'neil":          "O'Neil",
		"":                "",
	}

	for input, want := range tests {
		assert.Equal(t, want, titleCase(input), input)
	}
}
