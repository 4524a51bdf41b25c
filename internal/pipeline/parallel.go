package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/molgenis/biobesu/internal/benchmark"
)

// WorkItem holds an encoded case ready for the external tool.
type WorkItem struct {
	Seq             int
	Case            benchmark.Case
	PhenopacketPath string
}

// WorkResult holds the converted ranking of a single case.
type WorkResult struct {
	Seq    int
	CaseID string
	Result *CaseResult
	Err    error
}

// processParallel processes work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (p *Pipeline) processParallel(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := p.processCase(ctx, item)
				results <- WorkResult{
					Seq:    item.Seq,
					CaseID: item.Case.ID,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// feed sends one work item per case, stopping early when ctx is done.
func feed(ctx context.Context, cases []benchmark.Case, paths []string) <-chan WorkItem {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, c := range cases {
			select {
			case items <- WorkItem{Seq: i, Case: c, PhenopacketPath: paths[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return items
}
