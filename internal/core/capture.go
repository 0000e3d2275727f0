package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// tokenKind classifies a whitespace-separated piece of a capture string.
type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenPriority
	tokenTag
	tokenDay
)

// captureToken is a classified piece of a capture string. Priority tokens
// carry the clamped value in priority; the others carry value.
type captureToken struct {
	kind     tokenKind
	value    string
	priority int
}

// ParseCapture turns a raw capture string such as
// "Draft press release !8 #work @today" into a TaskDraft.
//
// Markers: !<n> sets the priority (clamped to 0..9, last one wins),
// #<word> adds a lower-cased tag, @today, @tomorrow and @YYYY-MM-DD set the
// target day (last one wins). Every other token is a title word. A marker
// whose payload does not parse (e.g. "!abc" or "@later") is kept as a word.
// ErrEmptyTitle is returned when no title words remain.
func ParseCapture(raw string) (models.TaskDraft, error) {
	draft := models.TaskDraft{Priority: models.DefaultPriority}

	var words []string
	seenTags := make(map[string]bool)

	for _, field := range strings.Fields(raw) {
		tok := classifyToken(field)
		switch tok.kind {
		case tokenPriority:
			draft.Priority = tok.priority
		case tokenTag:
			if !seenTags[tok.value] {
				seenTags[tok.value] = true
				draft.Tags = append(draft.Tags, tok.value)
			}
		case tokenDay:
			draft.TargetDay = tok.value
		default:
			words = append(words, tok.value)
		}
	}

	draft.Title = strings.Join(words, " ")
	if draft.Title == "" {
		return models.TaskDraft{}, ErrEmptyTitle
	}
	return draft, nil
}

func classifyToken(field string) captureToken {
	word := captureToken{kind: tokenWord, value: field}
	if len(field) < 2 {
		return word
	}

	payload := field[1:]
	switch field[0] {
	case '!':
		if p, ok := parsePriority(payload); ok {
			return captureToken{kind: tokenPriority, priority: p}
		}
	case '#':
		return captureToken{kind: tokenTag, value: strings.ToLower(payload)}
	case '@':
		if day, ok := parseDay(payload); ok {
			return captureToken{kind: tokenDay, value: day}
		}
	}
	return word
}

// parsePriority parses an integer payload and clamps it. Values too large
// for an int clamp by sign rather than being rejected.
func parsePriority(payload string) (int, bool) {
	n, err := strconv.Atoi(payload)
	if err == nil {
		return models.ClampPriority(n), true
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		if strings.HasPrefix(payload, "-") {
			return models.MinPriority, true
		}
		return models.MaxPriority, true
	}
	return 0, false
}

func parseDay(payload string) (string, bool) {
	lower := strings.ToLower(payload)
	switch lower {
	case models.DayToday, models.DayTomorrow:
		return lower, true
	}
	if _, err := time.Parse(models.DateLayout, payload); err == nil {
		return payload, true
	}
	return "", false
}

// ResolveTargetDay converts a symbolic target day to a calendar date in
// now's location. It returns false for an empty or unrecognised marker.
func ResolveTargetDay(day string, now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch day {
	case models.DayToday:
		return midnight, true
	case models.DayTomorrow:
		return midnight.AddDate(0, 0, 1), true
	case "":
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(models.DateLayout, day, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
