package ingest

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one request of a batch.
type BatchItem struct {
	Result *Result
	Err    error
}

// IngestBatch ingests reqs on a bounded worker pool. Requests without Raw
// are read from their source location. Per-request failures are reported
// in the matching item; the returned error is only set when ctx ends
// before every request ran.
func (c *Coordinator) IngestBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			var (
				res *Result
				err error
			)
			if req.Raw == nil && req.Source.Location != "" {
				res, err = c.IngestSource(gctx, req)
			} else {
				res, err = c.Ingest(gctx, req)
			}
			items[i] = BatchItem{Result: res, Err: err}
			if err != nil {
				c.logger.Warn("batch item failed", zap.Int("index", i), zap.String("location", req.Source.Location), zap.Error(err))
			}
			return nil
		})
	}
	werr := g.Wait()
	if werr == nil {
		werr = ctx.Err()
	}
	if werr != nil {
		for i := range items {
			if items[i].Result == nil && items[i].Err == nil {
				items[i].Err = werr
			}
		}
	}
	return items, werr
}
