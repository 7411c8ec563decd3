package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(16)

	require.NoError(t, err)
	assert.Len(t, token, 32)

	other, err := GenerateToken(16)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestContentID_Stable(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

	first := ContentID("Live Jazz at Stubbs", start)
	second := ContentID("Live Jazz at Stubbs", start)

	assert.Equal(t, first, second)
	assert.Len(t, first, 13)
}

func TestContentID_VariesByTitleAndDate(t *testing.T) {
	start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

	assert.NotEqual(t,
		ContentID("Live Jazz", start),
		ContentID("Open Mic", start))

	// Same day, different time still maps to the same id: the date alone
	// anchors it so minor listing changes do not fork new events.
	assert.Equal(t,
		ContentID("Live Jazz", start),
		ContentID("Live Jazz", start.Add(2*time.Hour)))

	assert.NotEqual(t,
		ContentID("Live Jazz", start),
		ContentID("Live Jazz", start.AddDate(0, 0, 1)))
}

func TestParameterize(t *testing.T) {
	assert.Equal(t, "live-jazz-at-stubb-s", parameterize("Live Jazz at Stubb's!"))
	assert.Equal(t, "plain", parameterize("plain"))
	assert.Equal(t, "", parameterize("!!!"))
}

func TestEventUID(t *testing.T) {
	assert.Equal(t, "event-abc123@funcal", EventUID("abc123"))
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	cb := NewCircuitBreaker("example.com")
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 20; i++ {
		_, err := cb.Execute(ctx, func() (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("example.com")

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestBreakerGroup_SharesPerKey(t *testing.T) {
	group := NewBreakerGroup()

	assert.Same(t, group.For("a.com"), group.For("a.com"))
	assert.NotSame(t, group.For("a.com"), group.For("b.com"))
}
