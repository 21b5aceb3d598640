package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	ctx := withAnalysis(withRunID(context.Background(), 12345), "schedule")

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := range numGoroutines {
		wg.Go(func() {
			runID, ok := getRunID(ctx)
			assert.True(t, ok, "Goroutine %d: getRunID should return true", i)
			assert.Equal(t, int64(12345), runID, "Goroutine %d: runID should be 12345", i)
			assert.Equal(t, "schedule", analysisFromContext(ctx), "Goroutine %d", i)
		})
	}
	wg.Wait()
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()

	_, ok := getRunID(ctx)
	assert.False(t, ok)
	assert.Empty(t, analysisFromContext(ctx))

	_, ok = getRunID(withRunID(ctx, 0))
	assert.False(t, ok, "a zero run ID means tracking is off")
}
