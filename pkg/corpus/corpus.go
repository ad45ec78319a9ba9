// Package corpus serves reference snippets to the retrieve_context step.
package corpus

import (
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"

	"draftflow/pkg/workflow"
)

// DefaultThreshold is the fraction of a key's words a query must share.
const DefaultThreshold = 0.3

// Entry is one keyed group of snippets.
type Entry struct {
	Key      string
	Snippets []string
}

// Store holds an email corpus and a meeting corpus.
type Store struct {
	email     []Entry
	meeting   []Entry
	threshold float64
	log       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithThreshold sets the word-overlap threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Store) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithEntries replaces the built-in corpora.
func WithEntries(email []Entry, meeting []Entry) Option {
	return func(s *Store) {
		s.email = slices.Clone(email)
		s.meeting = slices.Clone(meeting)
	}
}

// New returns a store seeded with the built-in corpora.
func New(opts ...Option) *Store {
	s := &Store{
		email:     EmailEntries(),
		meeting:   MeetingEntries(),
		threshold: DefaultThreshold,
		log:       slog.Default().With("component", "corpus.store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var wordPattern = regexp.MustCompile(`\w+`)

// Search returns the sorted, distinct snippets whose key matches query.
// email_reply searches the email corpus, schedule_meeting the meeting corpus
// and any other hint searches both.
func (s *Store) Search(query string, hint workflow.ActionType) []string {
	var entries []Entry
	switch hint {
	case workflow.ActionEmailReply:
		entries = s.email
	case workflow.ActionScheduleMeeting:
		entries = s.meeting
	default:
		entries = append(slices.Clone(s.email), s.meeting...)
	}

	lowered := strings.ToLower(query)
	queryWords := wordSet(lowered)

	seen := make(map[string]struct{})
	for _, entry := range entries {
		if !s.matches(lowered, queryWords, entry.Key) {
			continue
		}
		for _, snippet := range entry.Snippets {
			seen[snippet] = struct{}{}
		}
	}

	results := make([]string, 0, len(seen))
	for snippet := range seen {
		results = append(results, snippet)
	}
	slices.Sort(results)

	s.log.Debug("Corpus searched", "hint", string(hint), "entries", len(entries), "matches", len(results))
	return results
}

func (s *Store) matches(lowered string, queryWords map[string]struct{}, key string) bool {
	for _, word := range strings.Fields(key) {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	keyWords := wordSet(strings.ToLower(key))
	overlap := 0
	for word := range keyWords {
		if _, ok := queryWords[word]; ok {
			overlap++
		}
	}
	return float64(overlap) >= math.Max(1, float64(len(keyWords))*s.threshold)
}

func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(text, -1)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
