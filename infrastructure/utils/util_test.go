package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:             "0",
		-5:            "0",
		950:           "950",
		1_200:         "1.2K",
		3_400_000:     "3.4M",
		5_600_000_000: "5.6B",
		999:           "999",
		1_000:         "1.0K",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatNumber(in), "input %d", in)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:    "00:00",
		-10:  "00:00",
		59:   "00:59",
		60:   "01:00",
		253:  "04:13",
		3600: "01:00:00",
		3725: "01:02:05",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), "input %d", in)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.3%", FormatPercent(0.1234, 1))
	assert.Equal(t, "7.04%", FormatPercent(0.0704, 2))
	assert.Equal(t, "0.0%", FormatPercent(0, 1))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	assert.Equal(t, "ab", Truncate("abcdefghij", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestToday(t *testing.T) {
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, Today())
}
