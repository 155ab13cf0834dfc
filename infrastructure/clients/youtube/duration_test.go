package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseISODuration(t *testing.T) {
	cases := map[string]int64{
		"PT4M13S":    253,
		"PT1H23M45S": 5025,
		"PT45S":      45,
		"PT2H":       7200,
		"P1DT2H":     93600,
		"PT0S":       0,
		"":           0,
		"garbage":    0,
		"PT":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseISODuration(in), "input %q", in)
	}
}

func TestIsBotChallenge(t *testing.T) {
	assert.True(t, isBotChallenge(errString("ERROR: Sign in to confirm you're not a bot")))
	assert.True(t, isBotChallenge(errString("please solve this CAPTCHA to continue")))
	assert.True(t, isBotChallenge(errString("unusual traffic from your network")))
	assert.True(t, isBotChallenge(errString("detected automated requests")))
	assert.False(t, isBotChallenge(errString("HTTP Error 404: Not Found")))
	assert.False(t, isBotChallenge(nil))
}

type errString string

func (e errString) Error() string { return string(e) }
