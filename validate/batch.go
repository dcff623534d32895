package validate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/warden/document"
	"github.com/zero-day-ai/warden/schema"
)

// All validates every document against root concurrently and returns the
// reports in input order. Validation of a single document stays sequential,
// so each report is identical to what Validate would produce.
//
// At most limit documents validate at once; limit values below one default
// to GOMAXPROCS. The only error condition is context cancellation, in which
// case the partial results are discarded.
func All(ctx context.Context, v *Validator, root *schema.Node, docs []document.Value, limit int) ([]*Report, error) {
	if v == nil {
		v = New()
	}
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}

	reports := make([]*Report, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range docs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			reports[i] = v.Validate(root, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
