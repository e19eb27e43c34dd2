package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := SetTraceID(context.Background())
	traceID := GetTraceID(ctx)

	assert.Len(t, traceID, 32, "trace ID is 16 random bytes hex-encoded")
}

func TestGetTraceIDWithoutValue(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestTraceIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		traceID := GetTraceID(SetTraceID(context.Background()))
		assert.False(t, seen[traceID], "trace IDs must not repeat")
		seen[traceID] = true
	}
}
