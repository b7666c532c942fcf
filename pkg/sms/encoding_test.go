package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGSM7Bit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty string", "", true},
		{"plain ascii", "Hello, world! 123", true},
		{"gsm accented", "àèéùìò ÄÖÑÜ äöñü", true},
		{"greek uppercase", "ΔΦΓΛΩΠΨΣΘΞ", true},
		{"currency in set", "@£$¥¤", true},
		{"newline and cr", "line1\nline2\r", true},
		{"euro sign is wide", "price 5€", false},
		{"cjk is wide", "天气", false},
		{"emoji is wide", "hi 🌞", false},
		{"curly quote is wide", "it’s", false},
		{"single wide rune poisons", "abcdefé‐", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGSM7Bit(tt.text))
		})
	}
}

func TestChunkLimit(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		multipart bool
		want      int
	}{
		{"narrow single", "hello", false, 160},
		{"narrow multipart", "hello", true, 153},
		{"wide single", "héllo€", false, 70},
		{"wide multipart", "héllo€", true, 67},
		{"empty is narrow single", "", false, 160},
		{"empty is narrow multipart", "", true, 153},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkLimit(tt.text, tt.multipart))
		})
	}
}
