package bulk

import (
	"context"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/ckanbulk/internal/domain"
)

var errEntityNotFound = errors.New("entity not found")

// newShowLoader batches show calls for one expansion. CKAN has no bulk show
// action, so each batch fans out with at most concurrency calls in flight.
func newShowLoader(client Client, action string, concurrency int) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)
		for i, key := range keys {
			i, id := i, key.String()
			group.Go(func() error {
				record, err := client.Show(groupCtx, action, id)
				switch {
				case err != nil:
					results[i] = &dataloader.Result{Error: err}
				case record.Len() == 0:
					results[i] = &dataloader.Result{Error: errEntityNotFound}
				default:
					results[i] = &dataloader.Result{Data: record}
				}
				return nil
			})
		}
		_ = group.Wait()

		return results
	}

	return dataloader.NewBatchedLoader(batchFn,
		dataloader.WithWait(2*time.Millisecond),
		dataloader.WithBatchCapacity(DefaultExpandLimit),
	)
}

// loadRecord queues id on loader and returns a thunk that blocks until the
// batch containing it has been shown.
func loadRecord(ctx context.Context, loader *dataloader.Loader, id string) func() (domain.EntityRecord, error) {
	thunk := loader.Load(ctx, dataloader.StringKey(id))
	return func() (domain.EntityRecord, error) {
		data, err := thunk()
		if err != nil {
			return domain.EntityRecord{}, err
		}
		record, ok := data.(domain.EntityRecord)
		if !ok {
			return domain.EntityRecord{}, errEntityNotFound
		}
		return record, nil
	}
}
