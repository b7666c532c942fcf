package sms

import (
	"strings"
	"unicode/utf8"
)

// Segment splits text into transport-ready segments. Whitespace runs are
// collapsed to single spaces and the ends trimmed; if the normalized text
// fits a single segment under its own encoding it is returned whole.
// Otherwise words are packed greedily, re-classifying the candidate segment
// after each provisional append: adding one wide rune to a GSM 7-bit chunk
// drops its limit from 153 to 67, so the limit is a property of the candidate
// content, not of the source text.
//
// A word longer than its own multipart limit is split at the character level:
// the longest prefix that fits its own limit is emitted, then the remainder
// is re-split until exhausted.
//
// Segments come out in source order. Empty or whitespace-only input yields
// no segments.
func Segment(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	if utf8.RuneCountInString(text) <= ChunkLimit(text, false) {
		return []string{text}
	}

	var segments []string
	current := ""

	for _, word := range strings.Split(text, " ") {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}

		if utf8.RuneCountInString(candidate) <= ChunkLimit(candidate, true) {
			current = candidate
			continue
		}

		if current != "" {
			segments = append(segments, current)
		}

		if utf8.RuneCountInString(word) > ChunkLimit(word, true) {
			segments = append(segments, splitWord(word)...)
			current = ""
		} else {
			current = word
		}
	}

	if current != "" {
		segments = append(segments, current)
	}

	return segments
}

// splitWord chops an oversized word into segments, each the longest prefix
// of the remainder that fits the multipart limit for its own encoding. The
// scan runs from the full remainder downward because the limit is not
// monotone in prefix length: a short prefix of a mostly-wide word can itself
// be GSM 7-bit.
func splitWord(word string) []string {
	var parts []string
	remaining := []rune(word)

	for len(remaining) > 0 {
		for i := len(remaining); i >= 1; i-- {
			part := string(remaining[:i])
			if i <= ChunkLimit(part, true) {
				parts = append(parts, part)
				remaining = remaining[i:]
				break
			}
		}
	}

	return parts
}
