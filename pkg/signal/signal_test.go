package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, key string, tags []string, strength float64) Signal {
	t.Helper()
	s, err := New(key, tags, strength, "", Evidence{})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		strength float64
		wantErr  bool
	}{
		{"valid", "TIME_DIFF_OVER", 1, false},
		{"zero strength allowed", "TIME_DIFF_OVER", 0, false},
		{"empty key", "", 1, true},
		{"negative", "K", -0.5, true},
		{"nan", "K", math.NaN(), true},
		{"inf", "K", math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.key, nil, tt.strength, "", Evidence{})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignal)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_CopiesTags(t *testing.T) {
	tags := []string{"SERVER_FAIL"}
	s := mustNew(t, "K", tags, 1)
	tags[0] = "MUTATED"
	assert.Equal(t, []string{"SERVER_FAIL"}, s.Tags)
}

func TestSignalMatching(t *testing.T) {
	s := mustNew(t, "HTTP_STATUS_CODE_5XX_503", []string{"SERVER_FAIL"}, 1)

	assert.True(t, s.MatchesKey("HTTP_STATUS_CODE_5XX"))
	assert.True(t, s.MatchesKey("http_status_code_5xx"), "key match ignores case")
	assert.False(t, s.MatchesKey("HTTP_STATUS_CODE_4XX"))

	assert.True(t, s.MatchesTag("SERVER_FAIL"))
	assert.True(t, s.MatchesTag("FAIL"), "tag match is a substring match")
	assert.False(t, s.MatchesTag("server_fail"), "tag match is case-sensitive")

	assert.True(t, s.Matches("5XX"))
	assert.True(t, s.Matches("SERVER_FAIL"))
	assert.False(t, s.Matches("CONNECTION_FAIL"))
	assert.True(t, s.HasTag("SERVER_FAIL"))
	assert.False(t, s.HasTag("FAIL"))
}

func TestSignalString(t *testing.T) {
	s := mustNew(t, "K", []string{"T"}, 0.5)
	assert.Equal(t, "K[T](0.50)", s.String())
}
