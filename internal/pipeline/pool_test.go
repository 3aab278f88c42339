package pipeline

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfilges/umiPipeline/internal/sample"
	"github.com/sfilges/umiPipeline/internal/tool"
)

func TestFanOut_EveryItemExactlyOnce(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	var inflight, peak atomic.Int32

	work := func(_ context.Context, i int) int {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			m := peak.Load()
			if n <= m || peak.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return i * 10
	}
	notStarted := func(int, error) int { return -1 }

	var got []int
	for r := range fanOut(context.Background(), items, poolOptions{workers: 3}, work, notStarted) {
		got = append(got, r)
	}
	sort.Ints(got)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, got)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestFanOut_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	work := func(context.Context, string) string { ran.Add(1); return "ran" }
	notStarted := func(s string, err error) string {
		assert.ErrorIs(t, err, context.Canceled)
		return "skipped"
	}

	var got []string
	for r := range fanOut(ctx, []string{"a", "b", "c"}, poolOptions{workers: 1}, work, notStarted) {
		got = append(got, r)
	}
	require.Len(t, got, 3)
	assert.Zero(t, ran.Load())
	assert.Equal(t, []string{"skipped", "skipped", "skipped"}, got)
}

func TestFanOut_SingleWorkerSerializes(t *testing.T) {
	var inflight, peak atomic.Int32
	work := func(_ context.Context, s string) string {
		if n := inflight.Add(1); n > peak.Load() {
			peak.Store(n)
		}
		defer inflight.Add(-1)
		time.Sleep(2 * time.Millisecond)
		return s
	}

	var got []string
	for r := range fanOut(context.Background(), []string{"a", "b", "c", "d"}, poolOptions{workers: 1}, work,
		func(s string, _ error) string { return "" }) {
		got = append(got, r)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, int32(1), peak.Load())
}

func TestFanOut_Empty(t *testing.T) {
	ch := fanOut(context.Background(), nil, poolOptions{workers: 4},
		func(context.Context, int) int { return 0 }, func(int, error) int { return 0 })
	_, open := <-ch
	assert.False(t, open)
}

func TestSchedule_CollectsSortedOutcomes(t *testing.T) {
	units := []sample.Unit{{Name: "C"}, {Name: "A"}, {Name: "B"}}
	var progress []int

	summary := Schedule(context.Background(), units, ScheduleOptions{
		Workers: 2,
		OnDone:  func(done, total int, _ SampleOutcome) { progress = append(progress, done); assert.Equal(t, 3, total) },
	}, func(_ context.Context, u sample.Unit) SampleOutcome {
		status := tool.StatusSuccess
		if u.Name == "B" {
			status = tool.StatusFailure
		}
		return SampleOutcome{Sample: u.Name, Status: status}
	})

	assert.Equal(t, []string{"A", "B", "C"}, outcomeNames(summary.Samples))
	assert.Equal(t, "A", summary.Samples[0].Sample)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, RunStats{Total: 3, Succeeded: 2, Failed: 1}, summary.Stats)
	assert.False(t, summary.OK())
	_, ok := summary.Outcome("Z")
	assert.False(t, ok)
}
