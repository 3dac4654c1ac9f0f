package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "debug", zerolog.DebugLevel},
		{"development", " WARN ", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "bogus", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.env, tc.level), "env=%s level=%q", tc.env, tc.level)
	}
}
