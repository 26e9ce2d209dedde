package defaults

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketThresholdsOrdered(t *testing.T) {
	assert.Less(t, BucketLowMin, BucketMediumMin)
	assert.Less(t, BucketMediumMin, BucketHighMin)
}

func TestTruncationBounds(t *testing.T) {
	assert.Equal(t, TruncateAt, 2*TruncateKeep, "kept halves must cover the threshold exactly")
}

func TestUABot(t *testing.T) {
	assert.True(t, strings.Contains(UABot, ToolName+"/"+Version))
}

func TestExitCodesDistinct(t *testing.T) {
	codes := []int{ExitSuccess, ExitFindingsFound, ExitUserError, ExitNetworkError, ExitInternalError}
	seen := map[int]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
}
