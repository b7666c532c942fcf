package sms

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentEmptyInput(t *testing.T) {
	assert.Empty(t, Segment(""))
	assert.Empty(t, Segment("   \n\t  "))
}

func TestSegmentNormalizesWhitespace(t *testing.T) {
	got := Segment("  hello   world\n\tagain  ")
	require.Len(t, got, 1)
	assert.Equal(t, "hello world again", got[0])
}

func TestSegmentShortNarrowIsSingle(t *testing.T) {
	texts := []string{
		"ok",
		"What's the weather",
		strings.Repeat("a", 160),
	}
	for _, text := range texts {
		got := Segment(text)
		require.Len(t, got, 1, "text %q", text)
		assert.Equal(t, text, got[0])
	}
}

func TestSegmentNarrowMultipartLimits(t *testing.T) {
	// 161..500 narrow chars: every segment within the multipart limit, and
	// the segment count within one of the ideal packing.
	for _, n := range []int{161, 200, 306, 307, 459, 500} {
		words := buildNarrowText(n)
		got := Segment(words)
		require.NotEmpty(t, got)

		total := 0
		for _, seg := range got {
			assert.LessOrEqual(t, utf8.RuneCountInString(seg), GSMMultipartLimit)
			total += utf8.RuneCountInString(seg)
		}

		ideal := (n + GSMMultipartLimit - 1) / GSMMultipartLimit
		assert.InDelta(t, ideal, len(got), 1, "length %d packed into %d segments", n, len(got))
	}
}

func TestSegmentWideMultipartLimits(t *testing.T) {
	text := strings.Repeat("天气预报 ", 40) // well over 70 wide runes
	got := Segment(text)
	require.Greater(t, len(got), 1)
	for _, seg := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(seg), UCSMultipartLimit)
		assert.False(t, IsGSM7Bit(seg))
	}
}

func TestSegmentOversizedWideWordReconstructs(t *testing.T) {
	word := strings.Repeat("语", 250)
	got := Segment(word)
	require.Greater(t, len(got), 1)

	for i, seg := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(seg), UCSMultipartLimit)
		if i < len(got)-1 {
			assert.Equal(t, UCSMultipartLimit, utf8.RuneCountInString(seg))
		}
	}

	assert.Equal(t, word, strings.Join(got, ""))
}

func TestSegmentOversizedNarrowWordReconstructs(t *testing.T) {
	word := strings.Repeat("x", 400)
	got := Segment(word)
	require.Greater(t, len(got), 1)
	for _, seg := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(seg), GSMMultipartLimit)
	}
	assert.Equal(t, word, strings.Join(got, ""))
}

func TestSegmentPreservesWordOrder(t *testing.T) {
	var words []string
	for _, w := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"} {
		words = append(words, strings.Repeat(w+"-", 6)+w)
	}
	text := strings.Join(words, " ")
	got := Segment(text)
	require.Greater(t, len(got), 1)
	assert.Equal(t, text, strings.Join(got, " "))
}

func TestSegmentReclassifiesPerCandidate(t *testing.T) {
	// A long narrow run followed by a wide word: the chunk that absorbs the
	// wide word must obey the 67-rune wide limit even though the message
	// started out GSM 7-bit.
	text := strings.Repeat("sunny day ", 20) + "气温25度"
	got := Segment(text)
	require.Greater(t, len(got), 1)
	for _, seg := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(seg), ChunkLimit(seg, true))
	}
	last := got[len(got)-1]
	assert.Contains(t, last, "气温25度")
	assert.LessOrEqual(t, utf8.RuneCountInString(last), UCSMultipartLimit)
}

// buildNarrowText produces a space-separated GSM 7-bit string of exactly n
// characters.
func buildNarrowText(n int) string {
	var b strings.Builder
	for b.Len() < n {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("word")
	}
	return b.String()[:n]
}
