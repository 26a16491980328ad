package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanOut_CollectsInTaskOrder(t *testing.T) {
	tasks := []task[int]{
		{name: "slow", run: func(ctx context.Context) int { time.Sleep(20 * time.Millisecond); return 1 }},
		{name: "fast", run: func(ctx context.Context) int { return 2 }},
		{name: "medium", run: func(ctx context.Context) int { time.Sleep(5 * time.Millisecond); return 3 }},
	}

	got := fanOut(context.Background(), testLogger(), tasks)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestFanOut_PanicBecomesFallback(t *testing.T) {
	tasks := []task[[]string]{
		{name: "ok", run: func(ctx context.Context) []string { return []string{"a"} }},
		{name: "boom", run: func(ctx context.Context) []string { panic("nil map write") }, fallback: []string{"fallback"}},
		{name: "also ok", run: func(ctx context.Context) []string { return []string{"b"} }},
	}

	got := fanOut(context.Background(), testLogger(), tasks)
	assert.Equal(t, [][]string{{"a"}, {"fallback"}, {"b"}}, got)
}

func TestFanOut_DeadlineKeepsCompleted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	tasks := []task[string]{
		{name: "done", run: func(ctx context.Context) string { return "done" }},
		{name: "stuck", run: func(ctx context.Context) string { <-release; return "late" }, fallback: "abandoned"},
	}

	start := time.Now()
	got := fanOut(ctx, testLogger(), tasks)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"done", "abandoned"}, got)
}

func TestFanOut_NoTasks(t *testing.T) {
	got := fanOut[int](context.Background(), testLogger(), nil)
	assert.Empty(t, got)
}
