package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// poolOptions bounds a fan-out.
type poolOptions struct {
	workers int
	limiter *rate.Limiter // Optional; paces dispatch.
}

// fanOut runs work over items with a fixed number of workers pulling from
// one queue. Each item yields exactly one result on the returned channel,
// in completion order; the channel closes once all items are accounted
// for. A failing item never stops its siblings. When ctx is cancelled,
// items not yet dispatched are handed to notStarted instead of work.
func fanOut[I, O any](
	ctx context.Context,
	items []I,
	opts poolOptions,
	work func(context.Context, I) O,
	notStarted func(I, error) O,
) <-chan O {
	workers := opts.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) && len(items) > 0 {
		workers = len(items)
	}

	queue := make(chan I)
	results := make(chan O, workers)

	// One dispatcher plus the workers.
	var g errgroup.Group
	g.SetLimit(workers + 1)

	// dispatcher
	g.Go(func() error {
		defer close(queue)
		for i, it := range items {
			if ctx.Err() != nil {
				drain(ctx, items[i:], results, notStarted)
				return nil
			}
			if opts.limiter != nil {
				if err := opts.limiter.Wait(ctx); err != nil {
					drain(ctx, items[i:], results, notStarted)
					return nil
				}
			}
			select {
			case <-ctx.Done():
				drain(ctx, items[i:], results, notStarted)
				return nil
			case queue <- it:
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for it := range queue {
				results <- work(ctx, it)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()
	return results
}

func drain[I, O any](ctx context.Context, rest []I, results chan O, notStarted func(I, error) O) {
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	for _, it := range rest {
		results <- notStarted(it, err)
	}
}
