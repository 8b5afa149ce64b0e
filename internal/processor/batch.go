package processor

import (
	"context"
	"sync"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/reader"

	"github.com/rs/zerolog/log"
)

type job struct {
	Index   int
	Dataset config.Dataset
}

// Result is the outcome of processing one dataset.
type Result struct {
	Name string
	Err  error
}

// ProcessBatch processes datasets with a fixed number of workers.
// Results are returned in input order.
func ProcessBatch(
	ctx context.Context,
	fetcher reader.Fetcher,
	cfg *config.Config,
	datasets []config.Dataset,
	opts Options,
	concurrency int,
) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan job, len(datasets))
	results := make([]Result, len(datasets))

	go func() {
		for i, d := range datasets {
			jobs <- job{Index: i, Dataset: d}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				err := ctx.Err()
				if err == nil {
					err = ProcessDataset(ctx, fetcher, cfg, j.Dataset, opts)
				}
				if err != nil {
					log.Trace().Err(err).Str("dataset", j.Dataset.Name).Msg("Dataset job failed")
				}
				results[j.Index] = Result{Name: j.Dataset.Name, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
