// Package sms implements the message segmentation engine: classification of
// text against the GSM 03.38 basic character set, the per-segment length
// limits that follow from it, and word-boundary segment packing.
//
// The four limits are hard transport constraints, not tunables:
// GSM 7-bit single 160, GSM 7-bit multipart 153, UCS-2 single 70,
// UCS-2 multipart 67.
package sms

// Per-segment character limits.
const (
	GSMSingleLimit    = 160
	GSMMultipartLimit = 153
	UCSSingleLimit    = 70
	UCSMultipartLimit = 67
)

// gsm7BitChars is the GSM 03.38 basic character set: 128 glyphs including
// letters, digits, common punctuation, and a fixed set of accented and Greek
// characters. Any rune outside this set forces the whole message to UCS-2.
const gsm7BitChars = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞ" +
	" !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿" +
	"abcdefghijklmnopqrstuvwxyzäöñüà "

var gsm7BitSet = func() map[rune]struct{} {
	set := make(map[rune]struct{}, 128)
	for _, r := range gsm7BitChars {
		set[r] = struct{}{}
	}
	return set
}()

// IsGSM7Bit reports whether every rune of text belongs to the GSM 03.38
// basic set. The empty string is GSM 7-bit by convention.
func IsGSM7Bit(text string) bool {
	for _, r := range text {
		if _, ok := gsm7BitSet[r]; !ok {
			return false
		}
	}
	return true
}

// ChunkLimit returns the character limit for a single segment carrying text.
// The limit depends on the text's own encoding, so it must be recomputed for
// every candidate segment, never assumed constant across a message.
func ChunkLimit(text string, multipart bool) int {
	if IsGSM7Bit(text) {
		if multipart {
			return GSMMultipartLimit
		}
		return GSMSingleLimit
	}
	if multipart {
		return UCSMultipartLimit
	}
	return UCSSingleLimit
}
