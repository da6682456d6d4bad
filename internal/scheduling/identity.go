package scheduling

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rehacentrum/booking-engine/internal/calendar"
	"github.com/rehacentrum/booking-engine/internal/patient"
	"github.com/rehacentrum/booking-engine/internal/textfold"
)

const (
	partialPhoneDigits = 6
	// A lone name part must be longer than this to be searched at all.
	minSingleNameRunes = 4
	multiPartMatchRate = 0.8
)

// ResolvePatient picks the one event a cancel or reschedule request refers
// to. Matching stops at the first stage that finds anything:
//
//  1. the canonical phone equals the phone recorded in the description;
//  2. the last six digits of both phones agree, for exactly one event;
//  3. the name matches exactly one event, attempted only for two or more
//     name parts or a single part longer than four letters.
//
// More than one candidate at stage 2 or 3 yields ErrAmbiguousMatch; no
// candidate yields ErrNotFound. It never guesses.
func ResolvePatient(events []calendar.Event, name, phone string) (calendar.Event, error) {
	candidates := make([]calendar.Event, 0, len(events))
	for _, e := range events {
		if !e.AllDay {
			candidates = append(candidates, e)
		}
	}

	callerPhone := patient.NormalizePhone(phone)
	if callerPhone != "" {
		for _, e := range candidates {
			recorded := patient.NormalizePhone(calendar.RecordedPhone(e.Description))
			if recorded != "" && recorded == callerPhone {
				return e, nil
			}
		}

		if tail := patient.LastDigits(callerPhone, partialPhoneDigits); len(tail) == partialPhoneDigits {
			var matches []calendar.Event
			for _, e := range candidates {
				recorded := calendar.RecordedPhone(e.Description)
				if recorded != "" && patient.LastDigits(recorded, partialPhoneDigits) == tail {
					matches = append(matches, e)
				}
			}
			if picked, done, err := single(matches); done {
				return picked, err
			}
		}
	}

	parts := words(name)
	if !nameSpecificEnough(parts) {
		return calendar.Event{}, ErrNotFound
	}
	rate := 1.0
	if len(parts) >= 2 {
		rate = multiPartMatchRate
	}
	required := int(math.Ceil(float64(len(parts)) * rate))

	var matches []calendar.Event
	for _, e := range candidates {
		text := wordSet(e.Summary + " " + e.Description)
		hits := 0
		for _, p := range parts {
			if utf8.RuneCountInString(p) > 1 && text[p] {
				hits++
			}
		}
		if hits >= required {
			matches = append(matches, e)
		}
	}
	if picked, done, err := single(matches); done {
		return picked, err
	}
	return calendar.Event{}, ErrNotFound
}

// single reports a unique match, an ambiguity, or nothing (done=false).
func single(matches []calendar.Event) (calendar.Event, bool, error) {
	switch len(matches) {
	case 0:
		return calendar.Event{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return calendar.Event{}, true, ErrAmbiguousMatch
	}
}

func nameSpecificEnough(parts []string) bool {
	switch len(parts) {
	case 0:
		return false
	case 1:
		return utf8.RuneCountInString(parts[0]) > minSingleNameRunes
	default:
		return true
	}
}

// words splits folded text on anything that is not a letter or digit.
func words(text string) []string {
	return strings.FieldsFunc(textfold.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(text string) map[string]bool {
	ws := words(text)
	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	return set
}
