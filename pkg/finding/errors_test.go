package finding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels(t *testing.T) {
	all := map[error]string{
		ErrBaselineFailed:    "finding: baseline request failed",
		ErrTimeout:           "finding: timeout",
		ErrTargetUnreachable: "finding: target unreachable",
		ErrNoPayloads:        "finding: no payloads available",
	}
	for err, msg := range all {
		assert.EqualError(t, err, msg)
		for other := range all {
			if other != err {
				assert.NotErrorIs(t, err, other)
			}
		}
	}
}

func TestSentinels_WrappedCause(t *testing.T) {
	// Campaigns wrap a baseline failure with its cause.
	err := fmt.Errorf("%w: search: %w", ErrBaselineFailed,
		fmt.Errorf("%w: dial tcp: connection refused", ErrTargetUnreachable))

	assert.ErrorIs(t, err, ErrBaselineFailed)
	assert.ErrorIs(t, err, ErrTargetUnreachable)
	assert.False(t, errors.Is(err, ErrTimeout))
}
