package resonance

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_Is(t *testing.T) {
	t.Parallel()
	sentinels := []error{ErrAPIKey, ErrClosed, ErrHelper, ErrInvalidPayload}

	for _, sentinel := range sentinels {
		assert.True(t, strings.HasPrefix(sentinel.Error(), "resonance:"), "%v", sentinel)
		for _, other := range sentinels {
			if sentinel == other {
				assert.ErrorIs(t, sentinel, other)
				continue
			}
			assert.NotErrorIs(t, sentinel, other)
		}
	}
}

func TestSentinelErrors_WrappedIs(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("creating client: %w", ErrAPIKey)
	require.ErrorIs(t, wrapped, ErrAPIKey)
	assert.True(t, errors.Is(errors.Unwrap(wrapped), ErrAPIKey))
}
